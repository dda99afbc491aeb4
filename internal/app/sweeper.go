package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultSweepInterval    = 5 * time.Second
	DefaultHeartbeatTimeout = 30 * time.Second
	DefaultFullSweepEvery   = time.Minute
)

// Heartbeat records the last time any client talked to the process.
type Heartbeat struct {
	last atomic.Int64
	now  func() time.Time
}

func NewHeartbeat(now func() time.Time) *Heartbeat {
	if now == nil {
		now = time.Now
	}
	h := &Heartbeat{now: now}
	h.Touch()
	return h
}

func (h *Heartbeat) Touch() {
	h.last.Store(h.now().UnixNano())
}

func (h *Heartbeat) Since() time.Duration {
	return h.now().Sub(time.Unix(0, h.last.Load()))
}

// Sweeper runs Cleanup when the whole process has gone quiet, and at a
// slower fixed pace otherwise so idle users still expire under traffic.
type Sweeper struct {
	Registry         *Registry
	Heartbeat        *Heartbeat
	Interval         time.Duration
	HeartbeatTimeout time.Duration
	FullSweepEvery   time.Duration

	lastFull time.Time
}

func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	log.Info().Str("module", "app.sweeper").Dur("interval", interval).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
			return
		case <-t.C:
			s.Tick()
		}
	}
}

// Tick runs one sweep decision. It never panics.
func (s *Sweeper) Tick() (swept bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "app.sweeper").Err(fmt.Errorf("%v", rec)).Msg("sweep panicked")
			swept = false
		}
	}()

	timeout := s.HeartbeatTimeout
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}
	every := s.FullSweepEvery
	if every <= 0 {
		every = DefaultFullSweepEvery
	}

	now := s.Registry.now()
	quiet := s.Heartbeat.Since() > timeout
	due := now.Sub(s.lastFull) >= every
	if !quiet && !due {
		return false
	}
	if quiet {
		log.Debug().Str("module", "app.sweeper").Dur("silence", s.Heartbeat.Since()).Msg("no client activity, cleaning rooms")
	}
	s.Registry.Cleanup()
	s.lastFull = now
	return true
}

package translate

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPreferredLanguage = "en"
	DefaultFlightTimeout     = 30 * time.Second
)

type Config struct {
	CacheSize         int
	PreferredLanguage string
	// FlightTimeout bounds one shared provider round (primary plus fallback).
	FlightTimeout time.Duration
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Multiplexer spreads translations across providers by quota, falls back
// once on failure and caches results.
type Multiplexer struct {
	providers map[string]Provider
	usage     *usage
	cache     *Cache
	group     singleflight.Group
	flightTTL time.Duration

	mu        sync.RWMutex
	preferred string
}

func NewMultiplexer(cfg Config, store UsageStore, backends ...Backend) (*Multiplexer, error) {
	if len(backends) == 0 {
		return nil, ErrNoProviders
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.FlightTimeout <= 0 {
		cfg.FlightTimeout = DefaultFlightTimeout
	}
	preferred := domain.CanonicalLanguage(cfg.PreferredLanguage)
	if preferred == "" || preferred == domain.AutoLanguage {
		preferred = DefaultPreferredLanguage
	}

	providers := make(map[string]Provider, len(backends))
	quotas := make(map[string]int, len(backends))
	order := make([]string, 0, len(backends))
	for _, b := range backends {
		name := b.Provider.Name()
		if _, dup := providers[name]; dup {
			return nil, ErrDuplicateKey
		}
		providers[name] = b.Provider
		quotas[name] = b.Quota
		order = append(order, name)
	}

	cache, err := NewCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Multiplexer{
		providers: providers,
		usage:     newUsage(store, order, quotas, cfg.Now),
		cache:     cache,
		flightTTL: cfg.FlightTimeout,
		preferred: preferred,
	}, nil
}

// SetPreferredLanguage sets what "auto" becomes for providers that cannot detect.
func (m *Multiplexer) SetPreferredLanguage(lang string) {
	lang = domain.CanonicalLanguage(lang)
	if lang == "" || lang == domain.AutoLanguage {
		return
	}
	m.mu.Lock()
	changed := m.preferred != lang
	m.preferred = lang
	m.mu.Unlock()
	if changed {
		log.Debug().Str("module", "translate.mux").Str("lang", lang).Msg("preferred language set")
	}
}

func (m *Multiplexer) PreferredLanguage() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preferred
}

func (m *Multiplexer) Usage() []ProviderUsage { return m.usage.snapshot() }

func (m *Multiplexer) Month() string { return m.usage.currentMonth() }

// Translate never fails: when every provider errors the returned string
// carries the error message instead of a translation.
func (m *Multiplexer) Translate(ctx context.Context, text, source, target string) string {
	res, _ := m.Lookup(ctx, text, source, target)
	return res.Text
}

// Lookup is Translate with the failure kept as a *ProviderError. The
// Result still holds the degraded text in that case.
func (m *Multiplexer) Lookup(ctx context.Context, text, source, target string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, nil
	}
	source = domain.CanonicalLanguage(source)
	target = domain.CanonicalLanguage(target)
	if source != domain.AutoLanguage {
		m.SetPreferredLanguage(source)
	}

	key := cacheKey(text, source, target)
	if out, ok := m.cache.Get(key); ok {
		return Result{Text: out, Cached: true}, nil
	}

	// The shared round outlives any single caller: callers that join it
	// must not inherit the first caller's cancellation.
	flight := m.group.DoChan(key, func() (any, error) {
		if out, ok := m.cache.Get(key); ok {
			return Result{Text: out, Cached: true}, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.flightTTL)
		defer cancel()
		return m.translate(fctx, key, text, source, target)
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return Result{Text: degradedText(ctx.Err()), Degraded: true}, ctx.Err()
	}
	if res.Err != nil {
		log.Error().Err(res.Err).Str("module", "translate.mux").Str("source", source).Str("target", target).Msg("all providers failed")
		return Result{Text: degradedText(res.Err), Degraded: true}, res.Err
	}
	return res.Val.(Result), nil
}

func (m *Multiplexer) translate(ctx context.Context, key, text, source, target string) (Result, error) {
	primary, ok := m.usage.pick("")
	if !ok {
		return Result{}, ErrNoProviders
	}
	out, err := m.attempt(ctx, primary, key, text, source, target)
	if err == nil {
		return Result{Text: out, Provider: primary}, nil
	}
	log.Warn().Err(err).Str("module", "translate.mux").Str("provider", primary).Msg("provider failed, trying fallback")

	fallback, ok := m.usage.pick(primary)
	if !ok {
		return Result{}, &ProviderError{Primary: primary, PrimaryErr: err}
	}
	out, ferr := m.attempt(ctx, fallback, key, text, source, target)
	if ferr != nil {
		return Result{}, &ProviderError{Primary: primary, PrimaryErr: err, Fallback: fallback, FallbackErr: ferr}
	}
	return Result{Text: out, Provider: fallback, Fallback: true}, nil
}

func (m *Multiplexer) attempt(ctx context.Context, name, key, text, source, target string) (string, error) {
	p := m.providers[name]
	src := source
	if src == domain.AutoLanguage && !p.SupportsAuto() {
		src = m.PreferredLanguage()
		log.Debug().Str("module", "translate.mux").Str("provider", name).Str("source", src).Msg("auto not supported, using preferred language")
	}
	out, err := p.Translate(ctx, text, src, target)
	if err != nil {
		return "", err
	}
	out = Correct(out, target)
	m.usage.add(name, utf8.RuneCountInString(text))
	m.cache.Add(key, out)
	return out, nil
}

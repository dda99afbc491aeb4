package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Parley/internal/adapters/http"
	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/config"
	"github.com/dkeye/Parley/internal/translate"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Str("module", "main").Msg("no .env file, relying on process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	tc := cfg.Translation
	mux, err := translate.NewMultiplexer(
		translate.Config{
			CacheSize:         tc.CacheSize,
			PreferredLanguage: tc.PreferredLanguage,
			FlightTimeout:     2 * tc.HTTPTimeout,
		},
		translate.NewFileStore(tc.CountersFile),
		translate.Backend{Provider: translate.NewGoogle(tc.Google.BaseURL, tc.HTTPTimeout), Quota: tc.Google.Quota},
		translate.Backend{
			Provider: translate.NewMyMemory(tc.MyMemory.BaseURL, tc.MyMemory.Email, tc.HTTPTimeout),
			Quota:    tc.MyMemory.Quota,
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up translation providers")
	}

	reg := app.NewRegistry(mux, app.PivotPolicy{}, app.Options{
		MaxUsers:        cfg.Rooms.MaxUsers,
		MaxCodeAttempts: cfg.Rooms.MaxCodeAttempts,
		UserIdleTimeout: cfg.Sweeper.UserIdleTimeout,
	})
	hb := app.NewHeartbeat(time.Now)
	sweeper := &app.Sweeper{
		Registry:         reg,
		Heartbeat:        hb,
		Interval:         cfg.Sweeper.Interval,
		HeartbeatTimeout: cfg.Sweeper.HeartbeatTimeout,
		FullSweepEvery:   cfg.Sweeper.FullSweepEvery,
	}
	go sweeper.Run(ctx)

	h := &router.Handler{
		Registry:    reg,
		Translation: mux,
		Limiter:     router.NewRateLimiter(cfg.Broadcast.RateLimit, cfg.Broadcast.RateInterval),
		Mode:        cfg.Mode,
		BaseURL:     cfg.BaseURL,
	}
	r := router.SetupRouter(cfg, h, hb)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Parley server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

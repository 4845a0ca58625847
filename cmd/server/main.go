package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/driftline/market-sandbox/internal/api/router"
	"github.com/driftline/market-sandbox/internal/config"
	"github.com/driftline/market-sandbox/internal/signing"
	"github.com/driftline/market-sandbox/internal/stream"
	jwtpkg "github.com/driftline/market-sandbox/pkg/jwt"
	"github.com/driftline/market-sandbox/pkg/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// A missing production signing secret aborts here, before any request
	// could be served with a weak signature.
	signer, err := signing.New(cfg.StreamSecret, cfg.IsProduction(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("signer init")
	}

	registry := stream.NewRegistry()
	jwtManager := jwtpkg.NewManager(cfg.JWTSecret, cfg.JWTExpiry)
	limits := ratelimit.NewPerRoute(map[string]*ratelimit.Limiter{
		"history": ratelimit.NewLimiter(cfg.HistoryRate),
		"stream":  ratelimit.NewLimiter(cfg.StreamRate),
	})

	r := router.Setup(&router.Config{
		Signer:     signer,
		Registry:   registry,
		JWTManager: jwtManager,
		Limits:     limits,
		Stream: stream.Options{
			CandleInterval:    cfg.CandleInterval,
			HeartbeatInterval: cfg.HeartbeatInterval,
			RetryMillis:       cfg.RetryMillis,
		},
		Logger: log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	// open streams terminate with the server context
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server exited")
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

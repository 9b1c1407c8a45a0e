package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/typeduel/typeduel-backend/internal/config"
	"github.com/typeduel/typeduel-backend/internal/game"
	"github.com/typeduel/typeduel-backend/internal/server"
	"github.com/typeduel/typeduel-backend/internal/store"
)

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		st   *store.Store
		sink game.ResultSink
	)
	if cfg.DatabaseURL != "" {
		st, err = store.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer st.Close()
		if err := st.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("schema migration failed")
		}
		sink = st
		logger.Info().Msg("result persistence enabled")
	} else {
		logger.Info().Msg("DATABASE_URL not set, results will not be persisted")
	}

	registry, err := game.NewRegistry(cfg.TargetLetter, cfg.MaxPlayersPerSession, sink, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("word supply initialization failed")
	}
	srv := server.New(cfg, registry, st, logger)
	httpSrv := srv.HTTPServer()

	go func() {
		logger.Info().Str("addr", httpSrv.Addr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	registry.Shutdown()
}

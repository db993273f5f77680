// Package main runs the arena sync daemon: a headless client that keeps the
// reconciling store in step with the backend for one session.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"arena-sync/internal/config"
	"arena-sync/internal/gateway"
	"arena-sync/internal/model"
	"arena-sync/internal/oracle"
	"arena-sync/internal/pkg/db"
	"arena-sync/internal/realtime"
	"arena-sync/internal/repository"
	"arena-sync/internal/scheduler"
	"arena-sync/internal/storage"
	"arena-sync/internal/store"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log)

	log.Info().Str("realtime", cfg.Realtime.Driver).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	var assets gateway.AssetStore
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize asset storage")
		}
		assets = s3Store
	} else {
		log.Warn().Msg("Asset storage not configured, avatar uploads are disabled")
	}

	remote := gateway.NewRemote(
		repository.NewProfileRepository(dbPool.Pool),
		repository.NewTournamentRepository(dbPool.Pool),
		repository.NewMatchRepository(dbPool.Pool),
		repository.NewMessageRepository(dbPool.Pool),
		repository.NewTransactionRepository(dbPool.Pool),
		assets,
		cfg.Store.LeaderboardLimit,
	)

	var feed realtime.Feed
	switch cfg.Realtime.Driver {
	case config.DriverWebsocket:
		feed = realtime.NewWSFeed(cfg.Realtime.URL, cfg.Session.Token, cfg.Realtime.ReconnectDelay)
	default:
		feed = realtime.NewPGFeed(dbPool.Pool, cfg.Realtime.ReconnectDelay)
	}

	var verifier store.Verifier
	if cfg.Oracle.APIKey != "" {
		v, err := oracle.NewVerifier(ctx, cfg.Oracle)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create result verifier")
		}
		verifier = v
	} else {
		log.Warn().Msg("Oracle API key not set, screenshot verification is disabled")
	}

	arena := store.New(remote, feed, verifier, cfg.Store)
	defer arena.Close()

	arena.OnToast(func(n model.Notification) {
		log.Info().
			Str("kind", string(n.Kind)).
			Str("title", n.Title).
			Msg(n.Message)
	})

	resync, err := scheduler.NewResync(arena, cfg.Resync.Interval)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create resync scheduler")
	}

	if cfg.Session.UserID != "" {
		sess := &model.Session{UserID: cfg.Session.UserID, Token: cfg.Session.Token}
		if err := arena.SetSession(ctx, sess); err != nil {
			log.Warn().Err(err).Msg("Initial sync finished with errors")
		}
		st := arena.Snapshot()
		log.Info().
			Str("user_id", cfg.Session.UserID).
			Int("tournaments", len(st.Tournaments)).
			Int("matches", len(st.Matches)).
			Int("messages", len(st.ChatMessages)).
			Msg("Session established")
	} else {
		log.Warn().Msg("No session configured, running signed out")
	}

	resync.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	if err := resync.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop resync scheduler")
	}
	cancel()
	log.Info().Msg("Sync daemon stopped gracefully")
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

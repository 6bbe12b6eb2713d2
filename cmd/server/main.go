package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/config"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/database"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/handler"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/handler/sessions"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/handler/ws"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/identity"
	redisclient "github.com/ilam0602/glg-mobile-messages-ws/internal/redis"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/service/engine"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/service/relay"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/service/resolver"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file; using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg)
	log.Logger = logger

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	transcripts := store.NewSQLStore(db)
	if err := transcripts.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure transcript schema")
	}
	contacts := store.NewSQLContacts(db)
	if err := contacts.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure contact schema")
	}

	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}

	var directory identity.Directory
	if cfg.RedisURL != "" {
		rdb, err := redisclient.NewClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		directory = identity.NewRedisDirectory(rdb)
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
		logger.Info().Msg("user directory backed by redis")
	} else {
		directory = identity.NewMemoryDirectory()
		logger.Warn().Msg("REDIS_URL not set; user directory is in-memory and will not survive restarts")
	}

	var relayEngine relay.Engine
	if cfg.AI.Enabled() {
		engineSvc, err := engine.NewService(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("session engine init failed; serving without generated replies")
		} else {
			relayEngine = engineSvc
			logger.Info().Str("model", cfg.AI.Model).Msg("session engine initialized")
		}
	} else {
		logger.Warn().Msg("ark credentials not configured; serving without generated replies")
	}

	relaySvc := relay.New(relay.Config{
		Transcripts: transcripts,
		Directory:   directory,
		Contacts:    contacts,
		Engine:      relayEngine,
		Resolver:    resolver.New(directory, transcripts, logger),
		Logger:      logger,
	})

	verifier := identity.NewHMACVerifier(cfg.AuthSecret)
	router := handler.NewRouter(
		ws.New(relaySvc, verifier, logger),
		sessions.New(verifier, directory, transcripts, logger),
		checks,
	)

	startServer(ctx, logger, cfg.Addr(), router)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if cfg.Production() {
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func startServer(ctx context.Context, logger zerolog.Logger, addr string, router http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("chat relay listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

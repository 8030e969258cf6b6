package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nomadhub1/nomadhub/internal/config"
	"github.com/nomadhub1/nomadhub/internal/database"
	"github.com/nomadhub1/nomadhub/internal/digest"
	"github.com/nomadhub1/nomadhub/internal/publish"
	"github.com/nomadhub1/nomadhub/internal/render"
	"github.com/nomadhub1/nomadhub/internal/scraper"
	"github.com/nomadhub1/nomadhub/internal/server"
	"github.com/nomadhub1/nomadhub/internal/session"
	"github.com/nomadhub1/nomadhub/internal/upload"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.Production)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting NomadProHub", zap.Bool("production", cfg.Production))

	// Connect to database
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("connected to database")

	// Outbound fetcher for image resolution and OpenGraph metadata
	scr := scraper.New(scraper.Options{
		Timeout:      cfg.FetchTimeout,
		UserAgent:    cfg.FetchUserAgent,
		AllowPrivate: cfg.FetchAllowPrivate,
	}, logger)
	defer scr.Close()

	sessionStore, closeSessions, err := newSessionStore(ctx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	uploads := upload.New(cfg.UploadDir, logger)

	srv := server.New(server.Deps{
		Config:    cfg,
		Store:     db,
		Publisher: publish.New(db, scr, scr, uploads, logger),
		Renderer:  render.New(),
		Sessions:  session.NewManager(sessionStore, cfg.SessionTTL, cfg.Production, logger),
		Uploads:   uploads,
		Digest:    digest.New(db, cfg.DigestSubject),
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return <-errCh
}

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newSessionStore uses Redis when REDIS_URL is set, otherwise process memory
func newSessionStore(ctx context.Context, redisURL string, logger *zap.Logger) (session.Store, func(), error) {
	if redisURL == "" {
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}

	store, err := session.NewRedisStore(ctx, redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("using redis session store")
	return store, func() { store.Close() }, nil
}

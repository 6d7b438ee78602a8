package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/campus-market/internal/config"
	"github.com/shinyyama/campus-market/internal/db"
	"github.com/shinyyama/campus-market/internal/logger"
	"github.com/shinyyama/campus-market/internal/server"
	"github.com/shinyyama/campus-market/internal/session"
	"github.com/shinyyama/campus-market/internal/storage"
	"github.com/shinyyama/campus-market/internal/telemetry"
)

// Set at build time with -ldflags.
var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		log.Fatalf("telemetry setup error: %v", err)
	}
	logger.Setup(cfg)

	code := serve(ctx, cfg, tel)
	stop()
	os.Exit(code)
}

// serve runs the server until ctx ends, flushes telemetry and returns the process exit status.
func serve(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry) int {
	code := 0
	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "error", err)
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown error: %v", err)
	}
	return code
}

func run(ctx context.Context, cfg *config.Config) error {
	conn, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if cfg.Migrate {
		if err := db.Migrate(conn); err != nil {
			return err
		}
	}

	store, closeStore, err := sessionStore(cfg.Session)
	if err != nil {
		return err
	}
	defer closeStore()
	sessions := session.NewManager(store, cfg.Session.Secret, cfg.Session.TTL)

	images, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if c, ok := images.(interface{ Close() error }); ok {
		defer c.Close()
	}

	srv := server.New(cfg, conn, sessions, images, gitSHA, buildTime)
	addr := ":" + cfg.Port

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "git_sha", gitSHA)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func sessionStore(cfg config.SessionConfig) (session.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		return session.NewMemoryStore(), func() {}, nil
	case "", "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(opts)
		return session.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, errors.New("unsupported SESSION_STORE " + cfg.Store)
	}
}

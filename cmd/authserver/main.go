package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rvult/riftnet/internal/accounts"
	"github.com/rvult/riftnet/internal/accounts/pgaccounts"
	"github.com/rvult/riftnet/internal/authserver"
	"github.com/rvult/riftnet/internal/config"
)

const ConfigPath = "config/authserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	path := ConfigPath
	if p := os.Getenv("AUTHSERVER_CONFIG"); p != "" {
		path = p
	}
	file, err := config.LoadAuthServerFile(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(file.Server.LogLevel),
	})))

	slog.Info("riftnet authserver starting",
		"bind", file.Server.BindAddress,
		"port", file.Server.Port,
		"tick_rate_hz", file.Server.TickRateHz)

	if err := accounts.RunMigrations(ctx, file.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	repo, err := pgaccounts.New(ctx, file.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer repo.Close()
	slog.Info("database connected")

	srv, err := authserver.NewServer(file.Server, repo)
	if err != nil {
		return fmt.Errorf("creating authserver: %w", err)
	}

	slog.Info("authserver listening", "port", file.Server.Port)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("authserver: %w", err)
	}
	return nil
}

// parseLogLevel converts a string log level to slog.Level, defaulting to
// Info on an invalid or empty value.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

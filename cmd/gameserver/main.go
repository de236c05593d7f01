package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rvult/riftnet/internal/config"
	"github.com/rvult/riftnet/internal/gameserver"
)

const ConfigPath = "config/gameserver.yaml"

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
	if p := os.Getenv("GAMESERVER_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.LoadGameServer(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("riftnet gameserver starting",
		"bind", cfg.BindAddress,
		"port", cfg.Port,
		"tick_rate_hz", cfg.TickRateHz,
		"max_players", cfg.MaxPlayers)

	srv, err := gameserver.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("creating gameserver: %w", err)
	}

	slog.Info("gameserver listening", "port", cfg.Port)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("gameserver: %w", err)
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

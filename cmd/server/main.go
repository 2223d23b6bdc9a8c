package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-rooms/internal/app"
	"github.com/vovakirdan/wirechat-rooms/internal/config"
	"github.com/vovakirdan/wirechat-rooms/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	serve := func(cmd *cobra.Command, _ []string) error {
		bootLogger := log.New("info", "console")

		cfg, path, err := config.Load(bootLogger, configPath)
		if err != nil {
			return err
		}
		cfg.UpdateFrom(overrides)

		logger := log.New(cfg.LogLevel, cfg.LogFormat)
		logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting wirechat rooms server")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, &cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to initialize server")
			return err
		}
		if err := application.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("server exited with error")
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	}

	root := &cobra.Command{
		Use:          "wirechat-rooms",
		Short:        "Real-time chat room server",
		SilenceUsage: true,
		RunE:         serve,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE:  serve,
	}

	for _, cmd := range []*cobra.Command{root, serveCmd} {
		flags := cmd.Flags()
		flags.StringVar(&configPath, "config", "", "path to config.yaml")
		flags.StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
		flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
		flags.StringVar(&overrides.LogFormat, "log-format", "", "log format (console, json)")
		flags.StringVar(&overrides.DatabasePath, "database", "", "sqlite database path")
		flags.DurationVar(&overrides.IdleRoomTTL, "idle-room-ttl", 0, "delete rooms idle for longer than this")
	}

	root.AddCommand(serveCmd)
	return root
}

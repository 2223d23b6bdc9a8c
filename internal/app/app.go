package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-rooms/internal/config"
	"github.com/vovakirdan/wirechat-rooms/internal/core"
	"github.com/vovakirdan/wirechat-rooms/internal/store"
	"github.com/vovakirdan/wirechat-rooms/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-rooms/internal/transport/http"
)

// App wires together core, storage and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	broker          *core.Broker
	store           store.Store
	idleRoomTTL     time.Duration
	reapInterval    time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	var (
		st    store.Store
		hooks core.Hooks
	)
	if cfg.DatabasePath != "" {
		s, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		st = s
		hooks = newStoreHooks(st)
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
	} else {
		logger.Warn().Msg("no database_path configured, rooms are kept in memory only")
	}

	broker := core.NewBroker(core.Options{
		QueueSize:          cfg.QueueSize,
		CatchUpLimit:       cfg.CatchUpLimit,
		ReadLimit:          cfg.ReadLimit,
		MaxMessagesPerRoom: cfg.MaxMessagesPerRoom,
	}, hooks, logger)

	if st != nil {
		n, err := restore(ctx, st, broker, cfg.RestoreLimit)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("restore rooms: %w", err)
		}
		logger.Info().Int("rooms", n).Msg("rooms restored")
	}

	return &App{
		server:          transporthttp.NewServer(broker, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		broker:          broker,
		store:           st,
		idleRoomTTL:     cfg.IdleRoomTTL,
		reapInterval:    cfg.ReapInterval,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and the idle-room reaper and blocks until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.runReaper(gctx)
		return nil
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		// Streams are long-lived; end them first so Shutdown can drain.
		a.broker.Close()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runReaper periodically deletes idle rooms. It is a no-op when no TTL is set.
func (a *App) runReaper(ctx context.Context) {
	if a.idleRoomTTL <= 0 || a.reapInterval <= 0 {
		return
	}

	ticker := time.NewTicker(a.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if reaped := a.broker.ReapIdle(ctx, a.idleRoomTTL); len(reaped) > 0 {
				a.log.Info().Strs("rooms", reaped).Msg("reaped idle rooms")
			}
		case <-ctx.Done():
			return
		}
	}
}

// cleanup closes the broker, database and other resources.
func (a *App) cleanup() {
	a.broker.Close()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

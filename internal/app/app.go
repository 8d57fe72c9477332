// Package app wires configuration into a running auction server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/archive"
	"github.com/DoyleJ11/league-auction-backend/internal/config"
	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/DoyleJ11/league-auction-backend/internal/httpapi"
	"github.com/DoyleJ11/league-auction-backend/internal/hub"
	"github.com/DoyleJ11/league-auction-backend/internal/lobby"
	"github.com/DoyleJ11/league-auction-backend/internal/replication"
	"github.com/DoyleJ11/league-auction-backend/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg    config.Config
	log    *zap.Logger
	hub    *hub.Hub
	server *http.Server

	closers []func() error
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	backend, err := a.openBackend()
	if err != nil {
		return nil, err
	}
	repo, err := a.openArchive(ctx)
	if err != nil {
		return nil, err
	}

	var (
		pub  lobby.Publisher
		feed *replication.NATS
	)
	if cfg.NATSURL != "" {
		feed, err = replication.Connect(cfg.NATSURL, cfg.NATSSubject, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, feed.Close)
		pub = feed
	}

	a.hub = hub.NewHub(ctx, hub.Config{
		Engine:         engine.New(engine.WithRules(engine.Rules{UndoSurvivesNext: cfg.UndoSurvivesNext})),
		Stores:         func(code string) lobby.Store { return store.New(backend, code) },
		Archive:        archive.NewRecorder(repo, clockwork.NewRealClock()),
		Publisher:      pub,
		Logger:         log,
		PersistTimeout: cfg.PersistTimeout,
	})

	if feed != nil {
		sub, err := feed.Subscribe(a.hub.Replace)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sub.Unsubscribe)
		log.Info("replication enabled", zap.String("subject", cfg.NATSSubject), zap.String("origin", feed.Origin()))
	}

	a.server = &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:            a.hub,
			Archive:        repo,
			Logger:         log,
			AllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) openBackend() (store.Backend, error) {
	switch a.cfg.StoreBackend {
	case config.BackendMemory:
		return store.NewMemoryBackend(), nil
	case config.BackendFile:
		return store.NewFileBackend(a.cfg.StoreDir)
	case config.BackendPostgres:
		db, err := store.OpenPostgres(a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		return store.NewGormBackend(db)
	default:
		return nil, fmt.Errorf("unknown store backend %q", a.cfg.StoreBackend)
	}
}

func (a *App) openArchive(ctx context.Context) (archive.Repository, error) {
	switch a.cfg.ArchiveBackend {
	case config.BackendMemory:
		return archive.NewMemoryRepository(), nil
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open archive pool: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		return archive.NewPostgresRepository(ctx, pool)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", a.cfg.ArchiveBackend)
	}
}

func (a *App) Handler() http.Handler { return a.server.Handler }

// Run serves until ctx is cancelled, then drains HTTP and lobbies.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return multierr.Combine(
			a.server.Shutdown(shutdownCtx),
			a.hub.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}

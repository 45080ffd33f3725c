// Package app builds and owns the long-lived services of one CLI invocation:
// the catalog store, the progress hub and its sinks, the report backend and
// the run-summary publisher.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcsclient "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
	"github.com/JakeFAU/guestpost-catalog/internal/clock/system"
	"github.com/JakeFAU/guestpost-catalog/internal/config"
	"github.com/JakeFAU/guestpost-catalog/internal/hash/sha256"
	"github.com/JakeFAU/guestpost-catalog/internal/id/uuid"
	"github.com/JakeFAU/guestpost-catalog/internal/pipeline"
	"github.com/JakeFAU/guestpost-catalog/internal/progress"
	"github.com/JakeFAU/guestpost-catalog/internal/progress/sinks"
	"github.com/JakeFAU/guestpost-catalog/internal/publisher"
	"github.com/JakeFAU/guestpost-catalog/internal/publisher/pubsub"
	"github.com/JakeFAU/guestpost-catalog/internal/report"
	"github.com/JakeFAU/guestpost-catalog/internal/storage/gcs"
	"github.com/JakeFAU/guestpost-catalog/internal/storage/local"
	"github.com/JakeFAU/guestpost-catalog/internal/storage/memory"
	"github.com/JakeFAU/guestpost-catalog/internal/storage/postgres"
	"github.com/JakeFAU/guestpost-catalog/internal/storage/sqlite"
)

const closeTimeout = 10 * time.Second

// Options selects which services New builds.
type Options struct {
	// SkipStore leaves Store nil for commands that never touch the catalog.
	SkipStore bool
}

// App holds the services shared by the commands. Reports and Publisher are
// nil when their backend is not configured.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Store     catalog.Store
	Reports   report.BlobStore
	Publisher publisher.Publisher
	Progress  *progress.Hub
	Registry  *prometheus.Registry

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// New builds every configured service. It fails fast; services opened
// before the failure are closed again.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}

	if err := a.init(ctx, opts); err != nil {
		a.Close(ctx)
		return nil, err
	}
	logger.Info("services initialized",
		zap.String("db_driver", cfg.DB.Driver),
		zap.Bool("store", a.Store != nil),
		zap.String("report_backend", cfg.Report.Backend),
		zap.Bool("publisher", a.Publisher != nil),
	)
	return a, nil
}

func (a *App) init(ctx context.Context, opts Options) error {
	promSink, err := sinks.NewPrometheusSink(a.Registry)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}
	a.Progress = progress.NewHub(progress.Config{
		BaseContext: context.WithoutCancel(ctx),
		Logger:      a.Logger,
	}, sinks.NewLogSink(a.Logger), promSink)

	if !opts.SkipStore {
		store, err := openStore(ctx, a.Config, a.Logger)
		if err != nil {
			return err
		}
		a.Store = store
		a.closers = append(a.closers, closer{name: "catalog store", fn: store.Close})
	}

	if err := a.initReports(ctx); err != nil {
		return err
	}

	if a.Config.PubSub.ProjectID != "" {
		pub, closeFn, err := pubsub.Dial(ctx, a.Config.PubSub)
		if err != nil {
			return err
		}
		a.Publisher = pub
		a.closers = append(a.closers, closer{name: "pubsub", fn: closeFn})
	}
	return nil
}

func (a *App) initReports(ctx context.Context) error {
	switch a.Config.Report.Backend {
	case config.ReportMemory:
		a.Reports = memory.NewBlobStore()
	case config.ReportLocal:
		store, err := local.New(local.Config{Dir: a.Config.Report.Dir})
		if err != nil {
			return fmt.Errorf("init local reports: %w", err)
		}
		a.Reports = store
	case config.ReportGCS:
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, closer{name: "gcs client", fn: client.Close})
		store, err := gcs.New(client, gcs.Config{Bucket: a.Config.Report.GCSBucket})
		if err != nil {
			return err
		}
		a.Reports = store
	}
	return nil
}

// openStore connects the configured catalog backend. A seeded owner is
// registered on backends that start without users.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (catalog.Store, error) {
	owner, err := seedOwner(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.DB.Driver {
	case config.DriverMemory:
		store := memory.NewCatalogStore()
		if cfg.DB.SeedOwner {
			store.AddOwner(owner)
		}
		logger.Warn("using in-memory catalog store; nothing will persist")
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite catalog: %w", err)
		}
		if cfg.DB.SeedOwner {
			if err := store.AddOwner(ctx, owner); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("seed owner: %w", err)
			}
		}
		return store, nil
	case config.DriverPostgres:
		if cfg.DB.SeedOwner {
			logger.Warn("db.seed_owner is ignored for postgres; the owner must already exist")
		}
		store, err := postgres.NewCatalogStore(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres catalog: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}

func seedOwner(cfg config.Config) (catalog.Owner, error) {
	if !cfg.DB.SeedOwner {
		return catalog.Owner{}, nil
	}
	id, err := uuid.New().NewID()
	if err != nil {
		return catalog.Owner{}, fmt.Errorf("seed owner id: %w", err)
	}
	return catalog.Owner{ID: id, Email: cfg.Catalog.SystemOwnerEmail}, nil
}

// Deps assembles the pipeline collaborators from the App.
func (a *App) Deps() pipeline.Deps {
	return pipeline.Deps{
		Store:      a.Store,
		Clock:      system.New(),
		IDs:        uuid.New(),
		Hasher:     sha256.New(),
		Progress:   a.Progress,
		Logger:     a.Logger,
		Category:   a.Config.Category(),
		OwnerEmail: a.Config.Catalog.SystemOwnerEmail,
	}
}

// PushMetrics drains the progress hub so every event reaches the Prometheus
// sink, then pushes the registry to the configured Pushgateway. Events
// emitted afterwards are dropped. It is a no-op without a gateway URL.
func (a *App) PushMetrics(ctx context.Context, mode progress.Mode) error {
	url := a.Config.Metrics.PushgatewayURL
	if url == "" {
		return nil
	}
	if err := a.Progress.Close(ctx); err != nil {
		return fmt.Errorf("drain progress: %w", err)
	}
	err := push.New(url, a.Config.Metrics.Job).
		Gatherer(a.Registry).
		Grouping("mode", string(mode)).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Close drains the progress hub, then closes the remaining services in
// reverse order of creation. Errors are logged.
func (a *App) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	var errs []error
	if a.Progress != nil {
		if err := a.Progress.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("progress hub: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("error shutting down services", zap.Error(err))
	}
}

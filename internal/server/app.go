// Package server wires the reference server together: database and
// migrations, services, attachment storage, the REST API and background
// session cleanup.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/casefile/internal/logging"
	"github.com/dmitrijs2005/casefile/internal/server/config"
	"github.com/dmitrijs2005/casefile/internal/server/httpapi"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/casefile/internal/server/services"
	"github.com/dmitrijs2005/casefile/internal/server/storage"
)

const sessionPurgeInterval = 10 * time.Minute

var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// SessionPurger removes expired sessions.
type SessionPurger interface {
	PurgeSessions(ctx context.Context) (int64, error)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *httpapi.Metrics

	userService        *services.UserService
	beneficiaryService *services.BeneficiaryService
	referenceService   *services.ReferenceService
	submissionService  *services.SubmissionService
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store := storage.NewS3Store(c)

	app := &App{
		config:             c,
		logger:             logger,
		db:                 db,
		metrics:            httpapi.NewMetrics(),
		userService:        services.NewUserService(db, rm, c, services.NewLogNotifier(logger.With("module", "notifier")), logger),
		beneficiaryService: services.NewBeneficiaryService(db, rm, logger),
		referenceService:   services.NewReferenceService(db, rm),
		submissionService:  services.NewSubmissionService(db, rm, store, logger),
	}

	if c.BootstrapEmail != "" && c.BootstrapPassword != "" {
		name, _, _ := strings.Cut(c.BootstrapEmail, "@")
		if err := app.userService.EnsureUser(ctx, c.BootstrapEmail, name, c.BootstrapPassword); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap user error: %w", err)
		}
	}

	return app, nil
}

func (app *App) Close() error {
	return app.db.Close()
}

func (app *App) deps() httpapi.Deps {
	return httpapi.Deps{
		Users:          app.userService,
		Beneficiaries:  app.beneficiaryService,
		Reference:      app.referenceService,
		Submissions:    app.submissionService,
		Metrics:        app.metrics,
		Logger:         app.logger,
		AllowedOrigins: app.config.AllowedOrigins,
	}
}

// Run serves the API until ctx is cancelled or a component fails.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	srv := httpapi.NewHTTPServer(app.config.HTTPAddr, httpapi.NewRouter(app.deps()), app.config.ShutdownTimeout, app.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		purgeSessions(ctx, app.userService, app.metrics, sessionPurgeInterval, app.logger)
		return nil
	})

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

func purgeSessions(ctx context.Context, p SessionPurger, m *httpapi.Metrics, every time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeSessions(ctx)
			if err != nil {
				logger.Warn(ctx, "session cleanup failed", "error", err)
				continue
			}
			m.SessionsPurged(n)
			if n > 0 {
				logger.Debug(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}

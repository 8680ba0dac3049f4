// Package server wires configuration, storage backends and services into
// the HTTP API and runs it until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/timeline/internal/cryptox"
	"github.com/dmitrijs2005/timeline/internal/logging"
	"github.com/dmitrijs2005/timeline/internal/server/config"
	"github.com/dmitrijs2005/timeline/internal/server/httpapi"
	"github.com/dmitrijs2005/timeline/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timeline/internal/server/services"
	"github.com/dmitrijs2005/timeline/internal/server/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// Seams for tests.
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
	newBlobStore         = func(ctx context.Context, c *config.Config) (storage.BlobStore, error) {
		return storage.NewS3Store(ctx, c)
	}
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	if c.UsesDefaultSecret() {
		logger.Warn(ctx, "tokens are signed with the default secret key; set TIMELINE_SECRET_KEY")
	}

	hasher, err := cryptox.NewHasher(c.PasswordHasher)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	events := services.NewEventService(db, rm, blobs, logger)
	srv := httpapi.NewHTTPServer(c, logger, httpapi.Services{
		Users:  services.NewUserService(db, rm, c, hasher, logger),
		Events: events,
		Media:  services.NewMediaService(db, rm, events, blobs, c, logger),
		Export: services.NewExportService(db, rm, logger),
		DB:     db,
	})

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the API until ctx is cancelled or a stop signal arrives, then
// closes the database pool.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Environment, "hasher", app.config.PasswordHasher)

	app.initSignalHandler(cancelFunc)

	err := app.server.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
	}

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Warn(context.Background(), "db close error", "error", cerr)
	}

	app.logger.Info(context.Background(), "App stopped")
	return err
}

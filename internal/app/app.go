package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/phiguard/internal/application"
	appai "github.com/bryanwahyu/phiguard/internal/application/ai"
	appscans "github.com/bryanwahyu/phiguard/internal/application/scans"
	"github.com/bryanwahyu/phiguard/internal/config"
	"github.com/bryanwahyu/phiguard/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
	"github.com/bryanwahyu/phiguard/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/phiguard/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/phiguard/internal/infra/db/postgres"
	"github.com/bryanwahyu/phiguard/internal/infra/github"
	minioStore "github.com/bryanwahyu/phiguard/internal/infra/storage"
	"github.com/bryanwahyu/phiguard/internal/infra/store/local"
	"github.com/bryanwahyu/phiguard/internal/infra/store/tiered"
	"github.com/bryanwahyu/phiguard/internal/logging"
	"github.com/bryanwahyu/phiguard/internal/middleware"
)

// App holds the wired services shared by the API server and the CLI.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Scans    *appscans.Service
	Checkers map[string]middleware.HealthChecker

	db *sql.DB
}

// New wires config into services. An unreachable database or bucket is
// logged and skipped: scans still run against the local cache.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Checkers: map[string]middleware.HealthChecker{},
	}

	cache := local.New(cfg.Storage.LocalPath)
	var repo domain.Repository = cache
	var errLog scanerrors.Repository

	if cfg.DatabaseEnabled() {
		remote, errs, db, err := connectDB(ctx, cfg)
		if err != nil {
			logger.Warn("database unavailable, using local cache only",
				zap.String("driver", cfg.Database.Driver), zap.Error(err))
		} else {
			a.db = db
			repo = tiered.New(remote, cache, logger.Named("store"))
			errLog = errs
			a.Checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		}
	}

	svc := &appscans.Service{
		Repo: repo,
		Hosts: github.NewClient(github.Config{
			BaseURL:           cfg.GitHub.APIURL,
			Token:             cfg.GitHub.Token,
			Timeout:           cfg.GitHub.Timeout,
			RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		}),
		Analyzer: appai.NewService(openai.NewClient(openai.Config{
			APIKey:    cfg.AI.APIKey,
			BaseURL:   cfg.AI.BaseURL,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
		}), logger.Named("oracle")),
		Errors:   errLog,
		Clock:    application.SystemClock{},
		Logger:   logger.Named("scan"),
		MaxFiles: cfg.Scan.MaxFiles,
		Exclude:  cfg.Scan.Exclude,
	}

	if cfg.MinioEnabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.Bucket,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Warn("minio unavailable, reports will not be archived", zap.Error(err))
		} else {
			// never a typed nil
			svc.Artifacts = store
			a.Checkers["minio"] = store
		}
	}

	a.Scans = svc
	return a, nil
}

func connectDB(ctx context.Context, cfg *config.Config) (domain.Repository, scanerrors.Repository, *sql.DB, error) {
	d := cfg.Database
	switch d.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, mysqlp.DSN(d.User, d.Password, d.Host, d.Port, d.Name))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		return mysqlp.NewScanRepository(db), mysqlp.NewScanErrorRepository(db), db, nil
	case "postgres":
		db, err := pgp.Connect(ctx, pgp.DSN(d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		return pgp.NewScanRepository(db), pgp.NewScanErrorRepository(db), db, nil
	}
	return nil, nil, nil, fmt.Errorf("unsupported database driver %q", d.Driver)
}

// Close releases the database pool and flushes the logger.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

package app

import (
	"context"
	"fmt"
	"log"

	"secaudit/internal/adapters/archive"
	"secaudit/internal/adapters/memory"
	pg "secaudit/internal/adapters/postgres"
	"secaudit/internal/adapters/scanners"
	"secaudit/internal/config"
	"secaudit/internal/ports"
	"secaudit/internal/services/reports"
	"secaudit/internal/services/scanner"
	"secaudit/internal/workers/scanrunner"
)

// Version is stamped at build time with -ldflags "-X secaudit/internal/app.Version=...".
var Version = "dev"

var (
	_ ports.JobRepository    = (*memory.JobStore)(nil)
	_ ports.JobRepository    = (*pg.JobStore)(nil)
	_ ports.ReportRepository = (*memory.ReportStore)(nil)
	_ ports.ReportRepository = (*pg.ReportStore)(nil)
	_ ports.ReportArchive    = (*archive.Client)(nil)
	_ ports.Scanner          = (*scanner.Service)(nil)
	_ ports.Reports          = (*reports.Service)(nil)
)

// App holds the wired services shared by the server and the CLI.
type App struct {
	Scanner    *scanner.Service
	Reports    *reports.Service
	Dispatcher *scanrunner.Dispatcher
	db         *pg.DB
}

// Build wires stores, adapters and services from cfg. Jobs dispatched by the
// returned App are cancelled when ctx is.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	var (
		jobs ports.JobRepository
		repo ports.ReportRepository
		a    App
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		jobs, repo = db.Jobs(), db.Reports()
	default:
		jobs, repo = memory.NewJobStore(), memory.NewReportStore()
	}

	a.Reports = reports.New(repo)
	pipeline := scanrunner.NewPipeline(a.Reports,
		scanners.NewDependency(cfg.DependencyDir, cfg.DependencyTimeout, scanners.ExecCommand),
		scanners.NewCode(cfg.CodeDir, cfg.CodeTimeout, scanners.ExecCommand),
		scanners.NewImage(cfg.DefaultImage, cfg.ImageTimeout, scanners.ExecCommand),
	)
	if cfg.ArchiveEnabled() {
		client, err := archive.New(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL, cfg.ReportsBucket)
		if err != nil {
			a.closeDB()
			return nil, fmt.Errorf("archive client: %w", err)
		}
		if err := client.EnsureBucket(ctx); err != nil {
			log.Printf("warning: %v", err)
		}
		pipeline.WithArchive(client)
		log.Printf("archiving reports to %s/%s", cfg.S3Endpoint, cfg.ReportsBucket)
	}

	a.Dispatcher = scanrunner.NewDispatcher(ctx, jobs, pipeline)
	a.Scanner = scanner.New(jobs, pipeline, a.Dispatcher)
	return &a, nil
}

// Close waits for in-flight jobs until ctx expires, then releases the store.
func (a *App) Close(ctx context.Context) error {
	err := a.Dispatcher.Shutdown(ctx)
	a.closeDB()
	return err
}

func (a *App) closeDB() {
	if a.db != nil {
		a.db.Close()
	}
}

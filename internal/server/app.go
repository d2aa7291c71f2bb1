// Package server wires the filevault components together and runs them:
// the gRPC endpoint, the background task runner and the metrics endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/server/scanner"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"github.com/dmitrijs2005/filevault/internal/server/tasks"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/filevault/internal/server/grpc"
)

const (
	scanWorkers       = 2
	scanQueueCapacity = 256
)

var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	server  *gs.GRPCServer
	runner  *tasks.Runner
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat)
	if err != nil {
		return nil, err
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := newBlobStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store bucket error: %w", err)
	}

	oracle, err := newOracle(c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if c.AntivirusMode == config.AntivirusOff {
		logger.Warn(ctx, "antivirus disabled, uploads are not scanned")
	}

	m := metrics.New()

	target := &fileScanner{}
	scans := tasks.NewScanQueue(target, scanWorkers, scanQueueCapacity, c.ScanRetries, c.ScanRetryDelay, logger)

	files := services.NewFileService(db, rm, store, oracle, logger,
		services.WithMetrics(m),
		services.WithScanQueue(scans),
		services.WithUploadTTL(c.UploadSessionTTL),
		services.WithInlineLimit(api.MaxDataSize),
	)
	target.files = files

	folders := services.NewFolderService(db, rm, logger)
	users := services.NewUserService(db, rm, c, logger)

	runner := tasks.NewRunner(
		tasks.NewReaper(files, c.TrashRetention, m, logger),
		tasks.NewSessionSweeper(files.Uploads(), m, logger),
		scans,
		c.ReaperInterval,
		c.SessionSweepInterval,
		c.ScanRescanInterval,
		logger,
	)

	server := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, users, files, folders, runner, c.SecretKey)

	return &App{config: c, logger: logger, db: db, metrics: m, server: server, runner: runner}, nil
}

// newBlobStore builds the adapter selected by BlobBackend.
func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.BlobBackend {
	case config.BlobBackendS3:
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
	case config.BlobBackendMinio:
		return blobstore.NewMinioStore(blobstore.MinioConfig{
			Endpoint:  c.MinioEndpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Secure:    c.MinioSecure,
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
		})
	case config.BlobBackendMemory:
		return blobstore.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

// newOracle builds the virus scanner selected by AntivirusMode.
func newOracle(c *config.Config) (scanner.Oracle, error) {
	switch c.AntivirusMode {
	case config.AntivirusClamd:
		return scanner.NewClamd(c.ClamdAddr, c.ScanTimeout), nil
	case config.AntivirusOff:
		return scanner.Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown antivirus mode %q", c.AntivirusMode)
	}
}

// fileScanner forwards scan jobs to the file service. The scan queue is
// built before the service it scans for, so the target is set afterwards.
type fileScanner struct {
	files *services.FileService
}

func (f *fileScanner) ScanStoredFile(ctx context.Context, userID, fileID string) (scanner.Result, error) {
	return f.files.ScanStoredFile(ctx, userID, fileID)
}

func (f *fileScanner) PendingScans(ctx context.Context, limit int) ([]services.ScanJob, error) {
	return f.files.PendingScans(ctx, limit)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a termination signal arrives or a component fails, then
// stops the rest and closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.server.Run(ctx); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.runner.Run(ctx)
	})

	if app.config.MetricsAddr != "" {
		g.Go(func() error {
			if err := metrics.Serve(ctx, app.config.MetricsAddr, app.metrics, app.logger); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "app stopped with error", "error", err)
	}

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "error", cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}

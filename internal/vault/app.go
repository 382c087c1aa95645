// Package vault wires configuration, the metadata database, the remote store
// and the storage services into one App used by the command-line tool.
package vault

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/filex"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/remote"
	"github.com/dmitrijs2005/filevault/internal/remote/ftpstore"
	"github.com/dmitrijs2005/filevault/internal/remote/s3store"
	"github.com/dmitrijs2005/filevault/internal/vault/config"
	"github.com/dmitrijs2005/filevault/internal/vault/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/vault/services"
)

// openDB is a seam for tests.
var openDB = dbx.Open

type App struct {
	Config *config.Config
	Logger logging.Logger
	Store  remote.Store

	// StagingDir is the absolute form of Config.StagingDir.
	StagingDir string

	Folders   *services.FolderService
	Files     *services.FileService
	Uploads   *services.UploadService
	Downloads *services.DownloadService

	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewStore builds the remote store selected by c.Backend.
func NewStore(c *config.Config, logger logging.Logger) (remote.Store, error) {
	switch c.Backend {
	case config.BackendFTP:
		return ftpstore.New(c.FTP(), logger), nil
	case config.BackendS3:
		return s3store.New(c.S3(), logger), nil
	}
	return nil, fmt.Errorf("unknown backend %q", c.Backend)
}

// NewApp validates c, opens the database and builds the services. Logs are
// written to logOut.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(c.LogFormat, logOut)
	if err != nil {
		return nil, err
	}

	stagingDir, err := filex.EnsureDir(c.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("staging dir error: %w", err)
	}

	store, err := NewStore(c, logger)
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	provisioner := services.NewProvisioner(store, logger)

	return &App{
		Config:      c,
		Logger:      logger,
		Store:       store,
		StagingDir:  stagingDir,
		Folders:     services.NewFolderService(db, rm, provisioner, logger),
		Files:       services.NewFileService(db, rm, store, logger),
		Uploads:     services.NewUploadService(db, rm, store, provisioner, logger),
		Downloads:   services.NewDownloadService(store, stagingDir, logger),
		db:          db,
		repomanager: rm,
	}, nil
}

// Migrate applies pending schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	app.Logger.Info(ctx, "migrations applied")
	return nil
}

func (app *App) Close() error {
	return app.db.Close()
}

// WithSignals returns a context cancelled on SIGINT, SIGTERM or SIGQUIT.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelFunc := context.WithCancel(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()

	return ctx, cancelFunc
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/vault"
	"github.com/dmitrijs2005/filevault/internal/vault/config"
	"github.com/dmitrijs2005/filevault/internal/vault/models"
	"github.com/urfave/cli/v2"
)

// newVaultApp is a seam for tests.
var newVaultApp = vault.NewApp

var globalFlags = []cli.Flag{
	&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a JSON config file"},
	&cli.StringFlag{Name: "dsn", Aliases: []string{"d"}, Usage: "PostgreSQL DSN"},
	&cli.StringFlag{Name: "backend", Usage: "remote store: ftp or s3"},
	&cli.StringFlag{Name: "ftp-host", Usage: "FTP host"},
	&cli.IntFlag{Name: "ftp-port", Usage: "FTP port"},
	&cli.StringFlag{Name: "ftp-user", Usage: "FTP user"},
	&cli.StringFlag{Name: "ftp-password", Usage: "FTP password"},
	&cli.DurationFlag{Name: "ftp-timeout", Usage: "FTP dial timeout"},
	&cli.BoolFlag{Name: "ftp-explicit-tls", Usage: "use AUTH TLS on the control connection"},
	&cli.StringFlag{Name: "s3-bucket", Usage: "S3 bucket"},
	&cli.StringFlag{Name: "s3-endpoint", Usage: "S3 base endpoint"},
	&cli.StringFlag{Name: "staging-dir", Usage: "local staging directory"},
	&cli.StringFlag{Name: "log-format", Usage: "json, text or zap"},
	&cli.Int64Flag{Name: "user", Aliases: []string{"u"}, Usage: "id of the requesting user"},
	&cli.BoolFlag{Name: "admin", Usage: "act with administrator rights"},
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "filevault",
		Usage: "store user files on a remote FTP or S3 server",
		Flags: globalFlags,
		Commands: []*cli.Command{
			migrateCmd,
			mkdirCmd,
			foldersCmd,
			uploadCmd,
			downloadCmd,
			lsCmd,
			rmCmd,
			remoteLsCmd,
		},
	}
}

// loadConfig builds the configuration and applies the flags that were set
// explicitly, which take precedence over the file and the environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("dsn") {
		cfg.DatabaseDSN = c.String("dsn")
	}
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("ftp-host") {
		cfg.FTPHost = c.String("ftp-host")
	}
	if c.IsSet("ftp-port") {
		cfg.FTPPort = c.Int("ftp-port")
	}
	if c.IsSet("ftp-user") {
		cfg.FTPUser = c.String("ftp-user")
	}
	if c.IsSet("ftp-password") {
		cfg.FTPPassword = c.String("ftp-password")
	}
	if c.IsSet("ftp-timeout") {
		cfg.FTPTimeout = c.Duration("ftp-timeout")
	}
	if c.IsSet("ftp-explicit-tls") {
		cfg.FTPExplicitTLS = c.Bool("ftp-explicit-tls")
	}
	if c.IsSet("s3-bucket") {
		cfg.S3Bucket = c.String("s3-bucket")
	}
	if c.IsSet("s3-endpoint") {
		cfg.S3BaseEndpoint = c.String("s3-endpoint")
	}
	if c.IsSet("staging-dir") {
		cfg.StagingDir = c.String("staging-dir")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}

	return cfg, nil
}

// withApp builds a vault.App for the duration of one command.
func withApp(c *cli.Context, fn func(ctx context.Context, app *vault.App) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := vault.WithSignals(c.Context)
	defer cancel()

	app, err := newVaultApp(ctx, cfg, c.App.ErrWriter)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

// caller identifies who runs a command.
type caller struct {
	UserID int64
	Admin  bool
}

func callerFrom(c *cli.Context) (caller, error) {
	u := caller{UserID: c.Int64("user"), Admin: c.Bool("admin")}
	if u.UserID <= 0 && !u.Admin {
		return u, fmt.Errorf("--user is required")
	}
	return u, nil
}

func (u caller) requireUser() error {
	if u.UserID <= 0 {
		return fmt.Errorf("--user is required")
	}
	return nil
}

func (u caller) requireAdmin() error {
	if !u.Admin {
		return fmt.Errorf("%w: admin rights required", common.ErrForbidden)
	}
	return nil
}

// canRead reports whether u may download file.
func (u caller) canRead(file *models.File) error {
	if u.Admin || file.UserID == u.UserID {
		return nil
	}
	return fmt.Errorf("%w: file %d", common.ErrForbidden, file.ID)
}

// storedName is the collision-resistant name a file is stored under.
func storedName(original string, now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), original)
}

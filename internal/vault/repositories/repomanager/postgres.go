// Package repomanager vends the PostgreSQL repositories bound to a DBTX and
// applies the embedded schema migrations with goose.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/vault/migrations"
	"github.com/dmitrijs2005/filevault/internal/vault/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/vault/repositories/folders"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager hands out PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

// Files returns a files.Repository bound to db, which may be a transaction.
func (m *PostgresRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewPostgresRepository(db)
}

// Folders returns a folders.Repository bound to db.
func (m *PostgresRepositoryManager) Folders(db dbx.DBTX) folders.Repository {
	return folders.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations to db.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dbx.DriverName); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

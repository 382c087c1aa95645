// Package files persists file metadata records.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/vault/models"
)

const selectColumns = `id, user_id, folder_id, filename, original_name, file_path, file_size, file_type, ftp_path, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts file and fills its ID and timestamps.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (user_id, folder_id, filename, original_name, file_path, file_size, file_type, ftp_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.UserID, file.FolderID, file.Filename, file.OriginalName, file.FilePath, file.FileSize, file.FileType, file.RemotePath).
		Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns common.ErrNotFound when no row matches.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE id=$1`

	f, err := scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

// Delete removes the row and reports whether one existed.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// ListByUser returns the user's files, newest first, optionally narrowed to
// one folder.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64, folderID *int64) ([]*models.File, error) {
	query := `SELECT ` + selectColumns + ` FROM files
		WHERE user_id=$1 AND ($2::bigint IS NULL OR folder_id=$2)
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID, folderID)
}

// ListAll returns every file, newest first, optionally narrowed to one folder.
func (r *PostgresRepository) ListAll(ctx context.Context, folderID *int64) ([]*models.File, error) {
	query := `SELECT ` + selectColumns + ` FROM files
		WHERE ($1::bigint IS NULL OR folder_id=$1)
		ORDER BY created_at DESC`
	return r.list(ctx, query, folderID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.File, error) {
	f := &models.File{}
	var folderID sql.NullInt64
	err := s.Scan(&f.ID, &f.UserID, &folderID, &f.Filename, &f.OriginalName, &f.FilePath,
		&f.FileSize, &f.FileType, &f.RemotePath, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if folderID.Valid {
		id := folderID.Int64
		f.FolderID = &id
	}
	return f, nil
}

// Package folders persists folder records.
package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/vault/models"
)

const selectColumns = `id, user_id, folder_name, folder_path, ftp_path, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts folder and fills its ID and timestamps. A second folder
// with the same name for the same user yields common.ErrAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (user_id, folder_name, folder_path, ftp_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, folder.UserID, folder.Name, folder.FolderPath, folder.RemotePath).
		Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("folder %q: %w", folder.Name, common.ErrAlreadyExists)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByID returns the folder only when it belongs to userID.
func (r *PostgresRepository) FindByID(ctx context.Context, id, userID int64) (*models.Folder, error) {
	query := `SELECT ` + selectColumns + ` FROM folders WHERE id=$1 AND user_id=$2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *PostgresRepository) FindByName(ctx context.Context, userID int64, name string) (*models.Folder, error) {
	query := `SELECT ` + selectColumns + ` FROM folders WHERE user_id=$1 AND folder_name=$2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, name))
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Folder, error) {
	query := `SELECT ` + selectColumns + ` FROM folders WHERE user_id=$1 ORDER BY created_at DESC`
	return r.scanMany(ctx, query, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Folder, error) {
	query := `SELECT ` + selectColumns + ` FROM folders ORDER BY created_at DESC`
	return r.scanMany(ctx, query)
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Folder, error) {
	f := &models.Folder{}
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.FolderPath, &f.RemotePath, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select folder: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) scanMany(ctx context.Context, query string, args ...any) ([]*models.Folder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	var result []*models.Folder
	for rows.Next() {
		f := &models.Folder{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.FolderPath, &f.RemotePath, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

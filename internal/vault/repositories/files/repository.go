package files

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/vault/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id int64) (*models.File, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListByUser(ctx context.Context, userID int64, folderID *int64) ([]*models.File, error)
	ListAll(ctx context.Context, folderID *int64) ([]*models.File, error)
}

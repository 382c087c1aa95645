package folders

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/vault/models"
)

type Repository interface {
	Create(ctx context.Context, folder *models.Folder) error
	FindByID(ctx context.Context, id, userID int64) (*models.Folder, error)
	FindByName(ctx context.Context, userID int64, name string) (*models.Folder, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Folder, error)
	ListAll(ctx context.Context) ([]*models.Folder, error)
}

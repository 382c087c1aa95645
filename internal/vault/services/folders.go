package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/vault/models"
	"github.com/dmitrijs2005/filevault/internal/vault/paths"
	"github.com/dmitrijs2005/filevault/internal/vault/repositories/repomanager"
)

type FolderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	provisioner *Provisioner
	logger      logging.Logger
}

func NewFolderService(db *sql.DB, repomanager repomanager.RepositoryManager, provisioner *Provisioner,
	logger logging.Logger) *FolderService {
	return &FolderService{
		db:          db,
		repomanager: repomanager,
		provisioner: provisioner,
		logger:      logger.With("module", "folders"),
	}
}

// Create provisions /users/{userID}/{name} and records the folder. Creating
// a folder that already exists returns the existing record.
func (s *FolderService) Create(ctx context.Context, userID int64, name string) (*models.Folder, error) {
	if err := paths.ValidateName(name); err != nil {
		return nil, err
	}

	if _, err := s.provisioner.EnsureUserRoot(ctx, userID); err != nil {
		return nil, err
	}
	remotePath := paths.Folder(userID, name)
	if err := s.provisioner.EnsureDirectory(ctx, remotePath); err != nil {
		return nil, err
	}

	repo := s.repomanager.Folders(s.db)
	folder := &models.Folder{
		UserID:     userID,
		Name:       name,
		FolderPath: paths.LocalFolder(userID, name),
		RemotePath: remotePath,
	}

	err := repo.Create(ctx, folder)
	if errors.Is(err, common.ErrAlreadyExists) {
		s.logger.Debug(ctx, "folder exists", "user_id", userID, "name", name)
		return repo.FindByName(ctx, userID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMetadata, err)
	}

	s.logger.Info(ctx, "folder created", "user_id", userID, "folder_id", folder.ID, "remote_path", remotePath)
	return folder, nil
}

func (s *FolderService) ListByUser(ctx context.Context, userID int64) ([]*models.Folder, error) {
	return s.repomanager.Folders(s.db).ListByUser(ctx, userID)
}

func (s *FolderService) ListAll(ctx context.Context) ([]*models.Folder, error) {
	return s.repomanager.Folders(s.db).ListAll(ctx)
}

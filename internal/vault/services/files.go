package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/remote"
	"github.com/dmitrijs2005/filevault/internal/vault/models"
	"github.com/dmitrijs2005/filevault/internal/vault/paths"
	"github.com/dmitrijs2005/filevault/internal/vault/repositories/repomanager"
)

type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       remote.Store
	logger      logging.Logger
}

func NewFileService(db *sql.DB, repomanager repomanager.RepositoryManager, store remote.Store,
	logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: repomanager,
		store:       store,
		logger:      logger.With("module", "files"),
	}
}

func (s *FileService) Get(ctx context.Context, id int64) (*models.File, error) {
	return s.repomanager.Files(s.db).GetByID(ctx, id)
}

// ListByUser returns the user's files, optionally limited to one folder.
func (s *FileService) ListByUser(ctx context.Context, userID int64, folderID *int64) ([]*models.File, error) {
	return s.repomanager.Files(s.db).ListByUser(ctx, userID, folderID)
}

func (s *FileService) ListAll(ctx context.Context, folderID *int64) ([]*models.File, error) {
	return s.repomanager.Files(s.db).ListAll(ctx, folderID)
}

// ListRemote lists a remote directory as the store sees it. An empty path
// lists the root.
func (s *FileService) ListRemote(ctx context.Context, remotePath string) ([]remote.Entry, error) {
	if remotePath == "" {
		remotePath = "/"
	}
	if err := paths.ValidateRemote(remotePath); err != nil {
		return nil, err
	}
	return s.store.List(ctx, remotePath)
}

// Delete removes the record and the remote object of file id. The record
// survives when the remote delete fails; an object that is already gone
// does not block the delete. A commit failing after the remote delete
// leaves a record without bytes, which is logged.
func (s *FileService) Delete(ctx context.Context, id int64) (*models.File, error) {
	var deleted *models.File

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)

		file, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		ok, err := repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("file %d: %w", id, common.ErrNotFound)
		}

		if err := s.store.Delete(ctx, file.RemotePath); err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				return err
			}
			s.logger.Warn(ctx, "remote object already gone", "file_id", id, "remote_path", file.RemotePath)
		}

		deleted = file
		return nil
	})
	if err != nil {
		if deleted != nil {
			// the remote object is gone but the row could not be committed
			s.logger.Warn(ctx, "record kept after remote delete", "file_id", id,
				"remote_path", deleted.RemotePath, "error", err)
		}
		s.logger.Error(ctx, "delete failed", "file_id", id, "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "file deleted", "file_id", id, "remote_path", deleted.RemotePath)
	return deleted, nil
}

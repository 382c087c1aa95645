package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/filex"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/remote"
	"github.com/dmitrijs2005/filevault/internal/vault/models"
	"github.com/dmitrijs2005/filevault/internal/vault/paths"
	"github.com/dmitrijs2005/filevault/internal/vault/repositories/repomanager"
	"github.com/gabriel-vasile/mimetype"
)

// UploadRequest describes a file already staged on local disk.
type UploadRequest struct {
	UserID   int64
	FolderID *int64

	// LocalPath is the staged copy. It is removed once Upload returns.
	LocalPath string

	// Filename is the stored name and the last element of the remote path.
	Filename     string
	OriginalName string

	// Size, when set, must match the staged file. ContentType is detected
	// when left empty.
	Size        int64
	ContentType string
}

type UploadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       remote.Store
	provisioner *Provisioner
	logger      logging.Logger
}

func NewUploadService(db *sql.DB, repomanager repomanager.RepositoryManager, store remote.Store,
	provisioner *Provisioner, logger logging.Logger) *UploadService {
	return &UploadService{
		db:          db,
		repomanager: repomanager,
		store:       store,
		provisioner: provisioner,
		logger:      logger.With("module", "upload"),
	}
}

// Upload moves the staged file to the remote store and records its metadata.
//
// The record is written only after the bytes are stored. If the record
// cannot be written the remote object is left in place and reported as
// orphaned. Two uploads to the same remote path overwrite each other and
// the later one wins.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*models.File, error) {
	defer s.removeStaged(ctx, req.LocalPath)

	if err := paths.ValidateName(req.Filename); err != nil {
		return nil, err
	}

	dir, err := s.targetDir(ctx, req)
	if err != nil {
		return nil, err
	}
	remotePath := paths.File(dir, req.Filename)
	if !paths.InUserNamespace(req.UserID, remotePath) {
		return nil, fmt.Errorf("%w: %s", common.ErrOutsideNamespace, remotePath)
	}

	size, contentType, err := describe(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.provisioner.EnsureUserRoot(ctx, req.UserID); err != nil {
		return nil, err
	}
	if req.FolderID != nil {
		if err := s.provisioner.EnsureDirectory(ctx, dir); err != nil {
			return nil, err
		}
	}

	if err := s.store.Put(ctx, req.LocalPath, remotePath); err != nil {
		s.logger.Error(ctx, "remote put failed", "user_id", req.UserID, "remote_path", remotePath, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrTransfer, err)
	}

	originalName := req.OriginalName
	if originalName == "" {
		originalName = req.Filename
	}

	file := &models.File{
		UserID:       req.UserID,
		FolderID:     req.FolderID,
		Filename:     req.Filename,
		OriginalName: originalName,
		FilePath:     req.LocalPath,
		FileSize:     size,
		FileType:     contentType,
		RemotePath:   remotePath,
	}

	if err := s.repomanager.Files(s.db).Create(ctx, file); err != nil {
		s.logger.Warn(ctx, "remote object orphaned", "user_id", req.UserID, "remote_path", remotePath, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrMetadata, err)
	}

	s.logger.Info(ctx, "file uploaded", "user_id", req.UserID, "file_id", file.ID, "remote_path", remotePath, "size", size)
	return file, nil
}

// targetDir resolves the remote directory the file goes to. A folder that
// does not belong to the user is reported as not found.
func (s *UploadService) targetDir(ctx context.Context, req UploadRequest) (string, error) {
	if req.FolderID == nil {
		return paths.UserRoot(req.UserID), nil
	}

	folder, err := s.repomanager.Folders(s.db).FindByID(ctx, *req.FolderID, req.UserID)
	if err != nil {
		return "", fmt.Errorf("folder %d: %w", *req.FolderID, err)
	}
	if !paths.InUserNamespace(req.UserID, folder.RemotePath) {
		return "", fmt.Errorf("%w: %s", common.ErrOutsideNamespace, folder.RemotePath)
	}
	return folder.RemotePath, nil
}

func describe(req UploadRequest) (int64, string, error) {
	fi, err := os.Stat(req.LocalPath)
	if err != nil {
		return 0, "", fmt.Errorf("stat staged file: %w", err)
	}
	size := fi.Size()
	if req.Size > 0 && req.Size != size {
		return 0, "", fmt.Errorf("%w: staged file has %d bytes, expected %d", common.ErrTransfer, size, req.Size)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = common.DefaultContentType
		if m, err := mimetype.DetectFile(req.LocalPath); err == nil {
			contentType = m.String()
		}
	}

	return size, contentType, nil
}

func (s *UploadService) removeStaged(ctx context.Context, path string) {
	if err := filex.RemoveIfExists(path); err != nil {
		s.logger.Warn(ctx, "failed to remove staged file", "path", path, "error", err)
	}
}

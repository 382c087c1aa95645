package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/filex"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/remote"
	"github.com/dmitrijs2005/filevault/internal/vault/models"
)

// DownloadState is the lifecycle of a single download.
type DownloadState int

const (
	StatePending DownloadState = iota
	StateFetching
	StateStaged
	StateStreaming
	StateCompleted
	StateFailed
)

func (s DownloadState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetching:
		return "fetching"
	case StateStaged:
		return "staged"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("DownloadState(%d)", int(s))
}

// transfer records and logs the state of one download.
type transfer struct {
	state  DownloadState
	logger logging.Logger
}

func (t *transfer) to(ctx context.Context, next DownloadState) {
	t.logger.Debug(ctx, "download state", "from", t.state.String(), "to", next.String())
	t.state = next
}

func (t *transfer) fail(ctx context.Context, err error) {
	t.logger.Error(ctx, "download failed", "state", t.state.String(), "error", err)
	t.state = StateFailed
}

// DownloadService fetches remote objects into a local temp file and relays
// them to the caller. The caller is expected to have checked that the
// requester may read the file.
type DownloadService struct {
	store      remote.Store
	stagingDir string
	logger     logging.Logger
}

// NewDownloadService creates temp files in stagingDir, or in the system
// temp directory when stagingDir is empty.
func NewDownloadService(store remote.Store, stagingDir string, logger logging.Logger) *DownloadService {
	return &DownloadService{
		store:      store,
		stagingDir: stagingDir,
		logger:     logger.With("module", "download"),
	}
}

func (s *DownloadService) begin(ctx context.Context, file *models.File) *transfer {
	t := &transfer{
		state:  StatePending,
		logger: s.logger.With("file_id", file.ID, "remote_path", file.RemotePath),
	}
	t.to(ctx, StateFetching)
	return t
}

// stage fetches file into a fresh temp file and verifies its size. On error
// nothing is left on disk.
func (s *DownloadService) stage(ctx context.Context, file *models.File, t *transfer) (string, error) {
	pattern := fmt.Sprintf("download_%d_%d_*_%s", file.ID, time.Now().UnixNano(), filex.SafeBase(file.Filename))
	tmp, err := os.CreateTemp(s.stagingDir, pattern)
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %w", common.ErrTransfer, err)
	}
	tmpPath := tmp.Name()

	_, getErr := s.store.Get(ctx, file.RemotePath, tmp)
	closeErr := tmp.Close()

	switch {
	case getErr != nil && errors.Is(getErr, common.ErrNotFound):
		s.cleanup(ctx, tmpPath)
		return "", fmt.Errorf("file %d: %w", file.ID, getErr)
	case getErr != nil:
		s.cleanup(ctx, tmpPath)
		return "", fmt.Errorf("%w: %w", common.ErrTransfer, getErr)
	case closeErr != nil:
		s.cleanup(ctx, tmpPath)
		return "", fmt.Errorf("%w: close temp file: %w", common.ErrTransfer, closeErr)
	}

	fi, err := os.Stat(tmpPath)
	if err != nil {
		s.cleanup(ctx, tmpPath)
		return "", fmt.Errorf("%w: staged file missing: %w", common.ErrTransfer, err)
	}
	if fi.Size() != file.FileSize {
		s.cleanup(ctx, tmpPath)
		return "", fmt.Errorf("%w: staged %d bytes, expected %d", common.ErrTransfer, fi.Size(), file.FileSize)
	}

	t.to(ctx, StateStaged)
	return tmpPath, nil
}

func (s *DownloadService) cleanup(ctx context.Context, path string) {
	if err := filex.RemoveIfExists(path); err != nil {
		s.logger.Warn(ctx, "failed to remove temp file", "path", path, "error", err)
	}
}

// StreamTo copies the content of file into sink and returns the number of
// bytes written. The temp file is removed before StreamTo returns.
func (s *DownloadService) StreamTo(ctx context.Context, file *models.File, sink io.Writer) (int64, error) {
	t := s.begin(ctx, file)

	tmpPath, err := s.stage(ctx, file, t)
	if err != nil {
		t.fail(ctx, err)
		return 0, err
	}
	defer s.cleanup(ctx, tmpPath)

	in, err := os.Open(tmpPath)
	if err != nil {
		err = fmt.Errorf("%w: %w", common.ErrStream, err)
		t.fail(ctx, err)
		return 0, err
	}
	defer in.Close()

	t.to(ctx, StateStreaming)
	n, err := io.Copy(sink, remote.NewContextReader(ctx, in))
	if err != nil {
		err = fmt.Errorf("%w: %w", common.ErrStream, err)
		t.fail(ctx, err)
		return n, err
	}

	t.to(ctx, StateCompleted)
	return n, nil
}

// Staged is a downloaded file waiting to be read. Close removes it.
type Staged struct {
	Size int64
	Name string

	f      *os.File
	r      io.Reader
	path   string
	svc    *DownloadService
	t      *transfer
	ctx    context.Context
	closed bool

	// readErr is the first read failure; Close reports the transfer as
	// failed when it is set.
	readErr error
}

func (st *Staged) Read(p []byte) (int, error) {
	n, err := st.r.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w: %w", common.ErrStream, err)
		if st.readErr == nil {
			st.readErr = err
		}
		return n, err
	}
	return n, err
}

// Close releases the temp file. It is safe to call more than once.
func (st *Staged) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true

	err := st.f.Close()
	st.svc.cleanup(st.ctx, st.path)
	if st.t.state == StateStreaming {
		if st.readErr != nil {
			st.t.fail(st.ctx, st.readErr)
		} else {
			st.t.to(st.ctx, StateCompleted)
		}
	}
	return err
}

// Open stages file and returns a reader over it. The caller must Close the
// result; reads fail once ctx is done.
func (s *DownloadService) Open(ctx context.Context, file *models.File) (*Staged, error) {
	t := s.begin(ctx, file)

	tmpPath, err := s.stage(ctx, file, t)
	if err != nil {
		t.fail(ctx, err)
		return nil, err
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		s.cleanup(ctx, tmpPath)
		err = fmt.Errorf("%w: %w", common.ErrStream, err)
		t.fail(ctx, err)
		return nil, err
	}

	t.to(ctx, StateStreaming)
	return &Staged{
		Size: file.FileSize,
		Name: file.OriginalName,
		f:    f,
		r:    remote.NewContextReader(ctx, f),
		path: tmpPath,
		svc:  s,
		t:    t,
		ctx:  ctx,
	}, nil
}

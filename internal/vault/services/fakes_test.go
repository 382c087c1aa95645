package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/remote"
	"github.com/dmitrijs2005/filevault/internal/vault/models"
	"github.com/dmitrijs2005/filevault/internal/vault/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/vault/repositories/folders"
	"github.com/dmitrijs2005/filevault/internal/vault/repositories/repomanager"
)

// -------- remote store fake --------

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	dirs    map[string]bool

	puts, gets, mkdirs, deletes int

	mkdirDelay time.Duration

	// mkdirStarted, when set, receives a value as MkdirAll begins;
	// mkdirGate, when set, holds MkdirAll until it is closed.
	mkdirStarted chan struct{}
	mkdirGate    chan struct{}
	putErr     error
	getErr     error
	deleteErr  error
	mkdirErr   error

	// short truncates what Get writes by this many bytes.
	short int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, dirs: map[string]bool{"/": true}}
}

func missing(op, p string) error {
	return remote.NewOperationError(op, p, errors.New("550 no such file"), true)
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }

func (s *fakeStore) Put(ctx context.Context, localPath, remotePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	if !s.dirs[path.Dir(remotePath)] {
		return remote.NewOperationError("put", remotePath, errors.New("553 no parent"), false)
	}
	b, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.objects[remotePath] = b
	return nil
}

func (s *fakeStore) Get(ctx context.Context, remotePath string, dst io.Writer) (int64, error) {
	s.mu.Lock()
	s.gets++
	b, ok := s.objects[remotePath]
	getErr := s.getErr
	short := s.short
	s.mu.Unlock()

	if getErr != nil {
		return 0, getErr
	}
	if !ok {
		return 0, missing("get", remotePath)
	}
	if short > 0 && short <= len(b) {
		b = b[:len(b)-short]
	}
	n, err := dst.Write(b)
	return int64(n), err
}

func (s *fakeStore) List(ctx context.Context, remotePath string) ([]remote.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirs[remotePath] {
		return nil, missing("list", remotePath)
	}
	prefix := strings.TrimSuffix(remotePath, "/") + "/"
	var out []remote.Entry
	for p, b := range s.objects {
		if rest, ok := strings.CutPrefix(p, prefix); ok && !strings.Contains(rest, "/") {
			out = append(out, remote.Entry{Name: rest, Path: p, Size: int64(len(b))})
		}
	}
	for p := range s.dirs {
		if rest, ok := strings.CutPrefix(p, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			out = append(out, remote.Entry{Name: rest, Path: p, IsDir: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) MkdirAll(ctx context.Context, remotePath string) error {
	if s.mkdirStarted != nil {
		s.mkdirStarted <- struct{}{}
	}
	if s.mkdirGate != nil {
		<-s.mkdirGate
	}
	if s.mkdirDelay > 0 {
		time.Sleep(s.mkdirDelay)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mkdirs++
	if s.mkdirErr != nil {
		return s.mkdirErr
	}
	for p := remotePath; p != "/"; p = path.Dir(p) {
		s.dirs[p] = true
	}
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, remotePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.objects[remotePath]; !ok {
		return missing("delete", remotePath)
	}
	delete(s.objects, remotePath)
	return nil
}

func (s *fakeStore) has(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[p]
	return ok
}

func (s *fakeStore) hasDir(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirs[p]
}

func (s *fakeStore) traffic() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts + s.gets + s.mkdirs + s.deletes
}

// -------- repository fakes --------

type fakeFilesRepo struct {
	files.Repository
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.File

	createErr error
	deleteErr error
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{rows: map[int64]*models.File{}}
}

func (r *fakeFilesRepo) Create(ctx context.Context, f *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	f.ID = r.nextID
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	cp := *f
	r.rows[f.ID] = &cp
	return nil
}

func (r *fakeFilesRepo) GetByID(ctx context.Context, id int64) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFilesRepo) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return false, r.deleteErr
	}
	_, ok := r.rows[id]
	delete(r.rows, id)
	return ok, nil
}

func (r *fakeFilesRepo) ListByUser(ctx context.Context, userID int64, folderID *int64) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.File
	for _, f := range r.rows {
		if f.UserID != userID {
			continue
		}
		if folderID != nil && (f.FolderID == nil || *f.FolderID != *folderID) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *fakeFilesRepo) ListAll(ctx context.Context, folderID *int64) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.File
	for _, f := range r.rows {
		if folderID == nil || (f.FolderID != nil && *f.FolderID == *folderID) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFilesRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeFoldersRepo struct {
	folders.Repository
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Folder

	createErr error
}

func newFakeFoldersRepo() *fakeFoldersRepo {
	return &fakeFoldersRepo{rows: map[int64]*models.Folder{}}
}

func (r *fakeFoldersRepo) Create(ctx context.Context, f *models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.rows {
		if existing.UserID == f.UserID && existing.Name == f.Name {
			return common.ErrAlreadyExists
		}
	}
	r.nextID++
	f.ID = r.nextID
	cp := *f
	r.rows[f.ID] = &cp
	return nil
}

func (r *fakeFoldersRepo) FindByID(ctx context.Context, id, userID int64) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[id]
	if !ok || f.UserID != userID {
		return nil, common.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFoldersRepo) FindByName(ctx context.Context, userID int64, name string) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.rows {
		if f.UserID == userID && f.Name == name {
			cp := *f
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeFoldersRepo) ListByUser(ctx context.Context, userID int64) ([]*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Folder
	for _, f := range r.rows {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFoldersRepo) ListAll(ctx context.Context) ([]*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Folder, 0, len(r.rows))
	for _, f := range r.rows {
		out = append(out, f)
	}
	return out, nil
}

// put seeds a folder row directly.
func (r *fakeFoldersRepo) put(f *models.Folder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[f.ID] = f
	if f.ID > r.nextID {
		r.nextID = f.ID
	}
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	files   *fakeFilesRepo
	folders *fakeFoldersRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{files: newFakeFilesRepo(), folders: newFakeFoldersRepo()}
}

func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository     { return m.files }
func (m *fakeRepoManager) Folders(db dbx.DBTX) folders.Repository { return m.folders }

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// writeStaged creates a staged upload file of size bytes in dir.
func writeStaged(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	b := []byte(strings.Repeat("x", size))
	if err := os.WriteFile(p, b, 0o600); err != nil {
		t.Fatalf("write staged: %v", err)
	}
	return p
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		names = append(names, e.Name())
	}
	return names
}

func int64p(v int64) *int64 { return &v }

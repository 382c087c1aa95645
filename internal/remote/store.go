// Package remote describes the capability set the storage core needs from a
// remote file service. Implementations open one session per call and release
// it before returning, whatever the outcome; no session is pooled or reused.
package remote

import (
	"context"
	"io"
	"time"
)

// Store is the remote file service as seen by the orchestration layer.
type Store interface {
	// Ping opens a session and closes it again.
	Ping(ctx context.Context) error

	// Put uploads the local file at localPath to remotePath, replacing any
	// existing object.
	Put(ctx context.Context, localPath, remotePath string) error

	// Get streams the object at remotePath into dst and returns the number of
	// bytes written. The session is closed before Get returns.
	Get(ctx context.Context, remotePath string, dst io.Writer) (int64, error)

	// List returns the entries directly under remotePath.
	List(ctx context.Context, remotePath string) ([]Entry, error)

	// MkdirAll creates remotePath and any missing parents. An existing
	// directory is not an error.
	MkdirAll(ctx context.Context, remotePath string) error

	// Delete removes the object at remotePath.
	Delete(ctx context.Context, remotePath string) error
}

// Entry is one item of a remote directory listing.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	IsDir   bool      `json:"is_dir"`
	ModTime time.Time `json:"mod_time"`
}

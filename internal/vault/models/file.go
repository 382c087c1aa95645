// Package models defines the metadata records persisted in the database.
// The bytes themselves live in the remote store at RemotePath.
package models

import "time"

// File is the metadata of one stored file.
type File struct {
	ID       int64
	UserID   int64
	FolderID *int64

	// Filename is the stored (collision-resistant) name; OriginalName is
	// what the user uploaded.
	Filename     string
	OriginalName string

	// FilePath is the local staging path used during upload. It is kept for
	// reference only and never read back.
	FilePath string

	FileSize int64
	FileType string

	// RemotePath is the authoritative location of the bytes.
	RemotePath string

	CreatedAt time.Time
	UpdatedAt time.Time
}

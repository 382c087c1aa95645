package models

import "time"

// Folder groups a user's files under one remote directory.
type Folder struct {
	ID         int64
	UserID     int64
	Name       string
	FolderPath string
	RemotePath string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

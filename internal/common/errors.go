// Package common defines shared constants and sentinel errors used across
// the storage core, the repositories and the CLI. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Remote store errors.
	ErrConnection      = errors.New("remote store unreachable")
	ErrRemoteOperation = errors.New("remote operation rejected")

	// Lookup errors, shared by the remote store and the repositories.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Orchestration errors.
	ErrTransfer = errors.New("transfer failed")
	ErrStream   = errors.New("stream failed")
	ErrMetadata = errors.New("metadata write failed")

	// Validation errors.
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidPath      = errors.New("invalid remote path")
	ErrOutsideNamespace = errors.New("remote path outside user namespace")

	// Service-layer errors.
	ErrForbidden = errors.New("forbidden")
)

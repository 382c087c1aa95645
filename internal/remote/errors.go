package remote

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// ConnectionError reports that a session could not be established.
// It matches common.ErrConnection.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == common.ErrConnection }

// OperationError reports that the remote service rejected an action on Path.
// It matches common.ErrRemoteOperation, and common.ErrNotFound when the
// object did not exist.
type OperationError struct {
	Op   string
	Path string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func (e *OperationError) Is(target error) bool { return target == common.ErrRemoteOperation }

// NewOperationError wraps err for op on path. When missing is true the cause
// is additionally tagged with common.ErrNotFound.
func NewOperationError(op, path string, err error, missing bool) *OperationError {
	if missing {
		err = fmt.Errorf("%w: %w", common.ErrNotFound, err)
	}
	return &OperationError{Op: op, Path: path, Err: err}
}

// FailedPath returns the remote path carried by err, if any.
func FailedPath(err error) (string, bool) {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Path, true
	}
	return "", false
}

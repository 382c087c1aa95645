package services

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/remote"
	"github.com/dmitrijs2005/filevault/internal/vault/paths"
	"golang.org/x/sync/singleflight"
)

// Provisioner makes sure remote directories exist before files are written
// into them. Concurrent requests for the same path inside one process share
// a single MkdirAll call; races with other processes are absorbed by the
// store, which treats an existing directory as success.
type Provisioner struct {
	store  remote.Store
	logger logging.Logger
	group  singleflight.Group
}

func NewProvisioner(store remote.Store, logger logging.Logger) *Provisioner {
	return &Provisioner{store: store, logger: logger.With("module", "provisioner")}
}

// EnsureDirectory creates remotePath and its parents when missing.
func (p *Provisioner) EnsureDirectory(ctx context.Context, remotePath string) error {
	if err := paths.ValidateRemote(remotePath); err != nil {
		return err
	}

	// The shared call must outlive any single caller; each caller still
	// stops waiting when its own ctx is done.
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(remotePath, func() (any, error) {
		return nil, p.store.MkdirAll(shared, remotePath)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			p.logger.Error(ctx, "ensure directory failed", "remote_path", remotePath, "error", res.Err)
			return res.Err
		}
		p.logger.Debug(ctx, "directory ensured", "remote_path", remotePath, "shared", res.Shared)
		return nil
	}
}

// EnsureUserRoot creates /users/{userID}.
func (p *Provisioner) EnsureUserRoot(ctx context.Context, userID int64) (string, error) {
	root := paths.UserRoot(userID)
	if err := p.EnsureDirectory(ctx, root); err != nil {
		return "", err
	}
	return root, nil
}

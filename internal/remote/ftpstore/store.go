// Package ftpstore implements remote.Store on top of an FTP server.
//
// Each operation dials, logs in, performs a single action and quits. The
// session is scoped by withSession so that QUIT runs on every exit path.
package ftpstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/remote"
	"github.com/jlaffaye/ftp"
)

// Config holds the FTP endpoint and credentials.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	Timeout     time.Duration
	ExplicitTLS bool
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// session is the part of *ftp.ServerConn the store relies on.
type session interface {
	Login(user, password string) error
	Stor(path string, r io.Reader) error
	Retr(path string) (io.ReadCloser, error)
	List(path string) ([]*ftp.Entry, error)
	MakeDir(path string) error
	ChangeDir(path string) error
	Delete(path string) error
	Quit() error
}

type serverConn struct {
	*ftp.ServerConn
}

func (c serverConn) Retr(path string) (io.ReadCloser, error) {
	resp, err := c.ServerConn.Retr(path)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// dial is a seam for tests.
var dial = func(ctx context.Context, cfg Config) (session, error) {
	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if cfg.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(cfg.Timeout))
	}
	if cfg.ExplicitTLS {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: cfg.Host}))
	}
	c, err := ftp.Dial(cfg.Addr(), opts...)
	if err != nil {
		return nil, err
	}
	return serverConn{c}, nil
}

// Store is a remote.Store backed by FTP.
type Store struct {
	cfg    Config
	logger logging.Logger
}

var _ remote.Store = (*Store)(nil)

// New returns a Store that dials cfg.Addr() for every operation.
func New(cfg Config, logger logging.Logger) *Store {
	return &Store{cfg: cfg, logger: logger.With("module", "ftpstore", "addr", cfg.Addr())}
}

func (s *Store) withSession(ctx context.Context, op string, fn func(c session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c, err := dial(ctx, s.cfg)
	if err != nil {
		return &remote.ConnectionError{Addr: s.cfg.Addr(), Err: err}
	}
	defer func() {
		if err := c.Quit(); err != nil {
			s.logger.Debug(ctx, "ftp quit failed", "op", op, "error", err)
		}
	}()

	if err := c.Login(s.cfg.User, s.cfg.Password); err != nil {
		return &remote.ConnectionError{Addr: s.cfg.Addr(), Err: fmt.Errorf("login: %w", err)}
	}

	return fn(c)
}

// isNotFound reports a 550 reply, which servers use for missing files and
// directories.
func isNotFound(err error) bool {
	var te *textproto.Error
	return errors.As(err, &te) && te.Code == ftp.StatusFileUnavailable
}

func (s *Store) Ping(ctx context.Context) error {
	return s.withSession(ctx, "noop", func(session) error { return nil })
}

func (s *Store) Put(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local %s: %w", localPath, err)
	}
	defer f.Close()

	return s.withSession(ctx, "stor", func(c session) error {
		if err := c.Stor(remotePath, remote.NewContextReader(ctx, f)); err != nil {
			return remote.NewOperationError("stor", remotePath, err, false)
		}
		return nil
	})
}

func (s *Store) Get(ctx context.Context, remotePath string, dst io.Writer) (int64, error) {
	var n int64
	err := s.withSession(ctx, "retr", func(c session) error {
		r, err := c.Retr(remotePath)
		if err != nil {
			return remote.NewOperationError("retr", remotePath, err, isNotFound(err))
		}

		n, err = io.Copy(dst, remote.NewContextReader(ctx, r))
		if cerr := r.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return remote.NewOperationError("retr", remotePath, err, false)
		}
		return nil
	})
	return n, err
}

func (s *Store) List(ctx context.Context, remotePath string) ([]remote.Entry, error) {
	var result []remote.Entry
	err := s.withSession(ctx, "list", func(c session) error {
		entries, err := c.List(remotePath)
		if err != nil {
			return remote.NewOperationError("list", remotePath, err, isNotFound(err))
		}
		for _, e := range entries {
			if e.Name == "." || e.Name == ".." {
				continue
			}
			result = append(result, remote.Entry{
				Name:    e.Name,
				Path:    path.Join(remotePath, e.Name),
				Size:    int64(e.Size),
				IsDir:   e.Type == ftp.EntryTypeFolder,
				ModTime: e.Time,
			})
		}
		return nil
	})
	return result, err
}

func (s *Store) MkdirAll(ctx context.Context, remotePath string) error {
	return s.withSession(ctx, "mkd", func(c session) error {
		return mkdirAll(c, remotePath)
	})
}

// mkdirAll creates every missing segment of p. A MKD rejected because a
// concurrent creator got there first is accepted once CWD confirms the
// directory is present.
func mkdirAll(c session, p string) error {
	cur := "/"
	for _, seg := range strings.Split(strings.Trim(p, "/"), "/") {
		if seg == "" {
			continue
		}
		cur = path.Join(cur, seg)

		if err := c.ChangeDir(cur); err == nil {
			continue
		}
		if err := c.MakeDir(cur); err != nil {
			if cerr := c.ChangeDir(cur); cerr == nil {
				continue
			}
			return remote.NewOperationError("mkd", cur, err, false)
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, remotePath string) error {
	return s.withSession(ctx, "dele", func(c session) error {
		if err := c.Delete(remotePath); err != nil {
			return remote.NewOperationError("dele", remotePath, err, isNotFound(err))
		}
		return nil
	})
}

// Package objectstore provides the pluggable byte-blob backend the record
// store persists envelopes to, generalizing spec §4.2's "object store
// (filesystem, bucket)" abstraction.
package objectstore

import (
	"context"
	"os"
	"path/filepath"

	"kiss/internal/kisserrors"
)

// Backend is the minimal put/get/remove/list contract spec §4.2 requires.
type Backend interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
	List(ctx context.Context) ([]string, error)
}

// Local is a filesystem-backed Backend, the Go counterpart of the upstream
// object_store::local::LocalFileSystem used in original_source/src/storage/local.rs.
type Local struct {
	root string
}

// NewLocal returns a Local backend rooted at root, creating it if create is true.
func NewLocal(root string, create bool) (*Local, error) {
	if create {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, kisserrors.Wrap(err, "local storage backend failed to initialize")
		}
	} else if _, err := os.Stat(root); err != nil {
		return nil, kisserrors.Wrap(kisserrors.ErrLocalStorageFail, root)
	}
	return &Local{root: root}, nil
}

func (l *Local) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	return filepath.Join(l.root, clean), nil
}

func (l *Local) Put(_ context.Context, path string, data []byte) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return kisserrors.Wrap(err, "storage put failed")
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return kisserrors.Wrap(err, "storage put failed")
	}
	return nil
}

func (l *Local) Get(_ context.Context, path string) ([]byte, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kisserrors.ErrRecordNotFound
		}
		return nil, kisserrors.Wrap(err, "storage get failed")
	}
	return data, nil
}

func (l *Local) Remove(_ context.Context, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return kisserrors.Wrap(err, "storage remove failed")
	}
	return nil
}

func (l *Local) List(_ context.Context) ([]string, error) {
	var paths []string
	err := filepath.Walk(l.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, kisserrors.Wrap(err, "storage list failed")
	}
	return paths, nil
}

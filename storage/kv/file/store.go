package filekv

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/storage/kv"
)

const ext = ".json"

// Store keeps one file per key in a directory.
type Store struct {
	dir string
}

var _ kv.Store = (*Store)(nil)

// Open returns a Store writing to dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "creating data dir")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+ext)
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kv.ErrNotFound
		}
		return nil, errors.Wrapf(err, "reading %s", key)
	}
	return data, nil
}

// Set writes through a temp file so a failed write never truncates the previous value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return mapWriteErr(err, key)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(value); err != nil {
		_ = tmp.Close()
		return mapWriteErr(err, key)
	}
	if err = tmp.Close(); err != nil {
		return mapWriteErr(err, key)
	}
	if err = os.Rename(tmp.Name(), s.path(key)); err != nil {
		return mapWriteErr(err, key)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "deleting %s", key)
	}
	return nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "listing data dir")
	}
	keys := make([]string, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *Store) Close() error { return nil }

func mapWriteErr(err error, key string) error {
	if errors.Is(err, syscall.ENOSPC) {
		return errors.Wrap(kv.ErrQuotaExceeded, err.Error())
	}
	return errors.Wrapf(err, "writing %s", key)
}

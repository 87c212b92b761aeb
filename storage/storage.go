// Package storage opens the configured storage backends.
package storage

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/storage/drive"
	"github.com/trezcool/ieptracker/storage/drive/gdrive"
	inmemdrive "github.com/trezcool/ieptracker/storage/drive/inmem"
	"github.com/trezcool/ieptracker/storage/kv"
	filekv "github.com/trezcool/ieptracker/storage/kv/file"
	inmemkv "github.com/trezcool/ieptracker/storage/kv/inmem"
	rediskv "github.com/trezcool/ieptracker/storage/kv/redis"
	sqlxkv "github.com/trezcool/ieptracker/storage/kv/sqlx"
	"github.com/trezcool/ieptracker/storage/local"
)

// Storage engines
const (
	EngineMemory = "memory"
	EngineFile   = "file"
	EngineRedis  = "redis"
	EngineSQL    = "sql"

	DriveGoogle = "google"
	DriveMemory = "memory"
	DriveOff    = "off"
)

// OpenKV opens the key-value backend of the local store.
func OpenKV(ctx context.Context, conf *core.Config) (kv.Store, error) {
	switch conf.Storage.Engine {
	case EngineMemory:
		return inmemkv.New(conf.Storage.Quota), nil
	case EngineFile:
		return filekv.Open(conf.Storage.Dir)
	case EngineRedis:
		return rediskv.Open(ctx, rediskv.Options{
			Addr:      conf.Redis.Addr,
			Password:  conf.Redis.Password,
			DB:        conf.Redis.DB,
			Namespace: conf.Redis.Prefix,
		})
	case EngineSQL:
		if conf.Database.URL == "" {
			return nil, errors.New("database url is required by the sql storage engine")
		}
		return sqlxkv.Open(ctx, conf.Database.URL)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", conf.Storage.Engine)
	}
}

// RemoteFactory returns the factory of the configured drive. It is nil when the drive is off.
func RemoteFactory(conf *core.Config) (store.RemoteFactory, error) {
	opts := drive.Options{FolderName: conf.Drive.FolderName, DataFileName: conf.Drive.DataFileName}
	switch conf.Drive.Engine {
	case DriveGoogle:
		return gdrive.Factory(opts, conf.Drive.Endpoint), nil
	case DriveMemory:
		return inmemdrive.Factory(inmemdrive.New(), opts), nil
	case DriveOff, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown drive engine %q", conf.Drive.Engine)
	}
}

// NewService opens the configured backends and returns the storage Service over them.
// The returned kv.Store must be closed by the caller.
func NewService(ctx context.Context, conf *core.Config, logger core.Logger) (*store.Service, kv.Store, error) {
	backend, err := OpenKV(ctx, conf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening local storage")
	}
	remote, err := RemoteFactory(conf)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	maxBackups := conf.Backups.Max
	if maxBackups <= 0 {
		maxBackups = local.DefaultMaxBackups
	}
	svc := store.NewService(local.New(backend, logger, maxBackups), remote, logger, maxBackups)
	return svc, backend, nil
}

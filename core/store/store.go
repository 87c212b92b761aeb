// Package store coordinates the local and remote copies of the roster.
//
// The local store is the durability guarantee: saves must reach it, loads never fail because of it.
// The remote mirror is best-effort and only used when the caller supplies a drive credential.
package store

import (
	"context"

	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/core/student"
)

type (
	// LocalStore persists the roster and its daily backups on the device.
	LocalStore interface {
		Save(ctx context.Context, students []student.Student) error
		// Load never fails: missing or malformed data yields an empty roster.
		Load(ctx context.Context) []student.Student
		CreateAutoBackup(ctx context.Context, students []student.Student) error
		ListBackups(ctx context.Context) ([]BackupInfo, error)
		RestoreBackup(ctx context.Context, key string) ([]student.Student, error)
		PruneBackups(ctx context.Context, max int) error
		Clear(ctx context.Context) error
		Info(ctx context.Context) (LocalInfo, error)
	}

	// RemoteStore mirrors the roster to a folder of the user's drive.
	// Failed I/O is reported as *RemoteError.
	RemoteStore interface {
		Save(ctx context.Context, students []student.Student) error
		Load(ctx context.Context) ([]student.Student, error)
		// ExportSnapshot writes a new file and returns its name.
		ExportSnapshot(ctx context.Context, students []student.Student, name string) (string, error)
		CreateBackup(ctx context.Context) (string, error)
		DeleteAll(ctx context.Context) error
		FolderInfo(ctx context.Context) (RemoteInfo, error)
	}

	// RemoteFactory opens the remote store addressed by a bearer credential.
	RemoteFactory func(ctx context.Context, credential string) (RemoteStore, error)

	Service struct {
		local     LocalStore
		remote    RemoteFactory
		log       core.Logger
		maxBackup int
	}
)

// NewService returns a storage Service. A nil remote factory disables the remote mirror.
func NewService(local LocalStore, remote RemoteFactory, logger core.Logger, maxBackups int) *Service {
	return &Service{
		local:     local,
		remote:    remote,
		log:       logger,
		maxBackup: maxBackups,
	}
}

// RemoteEnabled reports whether a remote mirror is configured.
func (svc *Service) RemoteEnabled() bool {
	return svc.remote != nil
}

// openRemote returns nil, nil when no remote should be attempted.
func (svc *Service) openRemote(ctx context.Context, credential string) (RemoteStore, error) {
	if credential == "" || svc.remote == nil {
		return nil, nil
	}
	return svc.remote(ctx, credential)
}

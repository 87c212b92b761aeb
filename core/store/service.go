package store

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/core/student"
)

// Source tells where a loaded roster came from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

type (
	// RemoteResult is the outcome of the best-effort remote phase of an operation.
	// Attempted is false when no credential was given or no remote is configured.
	RemoteResult struct {
		Attempted bool            `json:"attempted"`
		OK        bool            `json:"ok"`
		Kind      RemoteErrorKind `json:"kind,omitempty"`
		Message   string          `json:"error,omitempty"`
		Err       error           `json:"-"`
	}

	LocalResult struct {
		Saved         bool   `json:"saved"`
		BackupCreated bool   `json:"backupCreated"`
		BackupError   string `json:"backupError,omitempty"`
	}

	LoadResult struct {
		Students []student.Student `json:"students"`
		Source   Source            `json:"source"`
		Remote   RemoteResult      `json:"remote"`
	}

	SaveResult struct {
		Local  LocalResult  `json:"local"`
		Remote RemoteResult `json:"remote"`
	}

	ExportResult struct {
		FileName string       `json:"fileName"`
		Remote   RemoteResult `json:"remote"`
	}

	Info struct {
		Local  LocalInfo    `json:"local"`
		Folder *RemoteInfo  `json:"folder"`
		Remote RemoteResult `json:"remote"`
	}
)

func remoteFailure(err error) RemoteResult {
	res := RemoteResult{Attempted: true, Err: err, Message: err.Error()}
	if kind, ok := RemoteKind(err); ok {
		res.Kind = kind
	}
	return res
}

// tryRemote runs fn against the remote store of credential, logging and recording any failure.
func (svc *Service) tryRemote(ctx context.Context, credential, op string, fn func(RemoteStore) error) RemoteResult {
	rs, err := svc.openRemote(ctx, credential)
	if rs == nil && err == nil {
		return RemoteResult{}
	}
	if err == nil {
		err = fn(rs)
	}
	if err != nil {
		svc.log.Warn("remote "+op+" failed, continuing with local data", err)
		return remoteFailure(err)
	}
	return RemoteResult{Attempted: true, OK: true}
}

// Load returns the roster, preferring the remote copy when a credential is given.
// A non-empty remote roster also replaces the local one. A failed or empty remote falls back to local.
func (svc *Service) Load(ctx context.Context, credential string) LoadResult {
	var remote []student.Student
	rres := svc.tryRemote(ctx, credential, "load", func(rs RemoteStore) error {
		var err error
		remote, err = rs.Load(ctx)
		return err
	})

	if rres.OK && len(remote) > 0 {
		remote = student.Normalize(remote)
		if err := svc.local.Save(ctx, remote); err != nil {
			svc.log.Warn("caching remote roster locally failed", err)
		}
		return LoadResult{Students: remote, Source: SourceRemote, Remote: rres}
	}
	return LoadResult{
		Students: student.Normalize(svc.local.Load(ctx)),
		Source:   SourceLocal,
		Remote:   rres,
	}
}

// Save writes the roster locally, takes the daily backup, then mirrors it remotely.
// Only a failed local write is returned as an error; the other outcomes are reported in SaveResult.
func (svc *Service) Save(ctx context.Context, students []student.Student, credential string) (SaveResult, error) {
	var res SaveResult
	if err := svc.local.Save(ctx, students); err != nil {
		return res, err
	}
	res.Local.Saved = true

	if err := svc.local.CreateAutoBackup(ctx, students); err != nil {
		svc.log.Warn("creating local backup failed", err)
		res.Local.BackupError = err.Error()
	} else {
		res.Local.BackupCreated = true
	}

	res.Remote = svc.tryRemote(ctx, credential, "save", func(rs RemoteStore) error {
		return rs.Save(ctx, students)
	})
	return res, nil
}

// Export writes the export document to w, then best-effort exports it to the drive folder.
// An empty filename selects the dated default.
func (svc *Service) Export(
	ctx context.Context,
	w io.Writer,
	students []student.Student,
	credential, filename string,
) (ExportResult, error) {
	if filename == "" {
		filename = ExportFileName()
	}
	res := ExportResult{FileName: filename}
	students = student.Normalize(student.Clone(students))

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewExportDocument(students)); err != nil {
		return res, errors.Wrap(err, "writing export")
	}

	res.Remote = svc.tryRemote(ctx, credential, "export", func(rs RemoteStore) error {
		_, err := rs.ExportSnapshot(ctx, students, filename)
		return err
	})
	return res, nil
}

// Import parses an uploaded export document. Nothing is persisted: the caller replaces its roster with the result.
func (svc *Service) Import(r io.Reader) ([]student.Student, error) {
	return DecodeImport(r)
}

// ClearAll deletes local data and backups, then the remote folder contents.
// A remote failure after the local data was cleared is returned as *ClearError.
func (svc *Service) ClearAll(ctx context.Context, credential string) error {
	if err := svc.local.Clear(ctx); err != nil {
		return errors.Wrap(err, "clearing local data")
	}

	rs, err := svc.openRemote(ctx, credential)
	if rs == nil && err == nil {
		return nil
	}
	if err == nil {
		err = rs.DeleteAll(ctx)
	}
	if err != nil {
		svc.log.Error("clearing remote data failed", err)
		return &ClearError{LocalCleared: true, RemoteErr: err}
	}
	return nil
}

func (svc *Service) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	return svc.local.ListBackups(ctx)
}

// RestoreBackup returns the roster of a local backup. The current roster is left untouched.
func (svc *Service) RestoreBackup(ctx context.Context, key string) ([]student.Student, error) {
	students, err := svc.local.RestoreBackup(ctx, key)
	if err != nil {
		return nil, err
	}
	return student.Normalize(students), nil
}

// PruneBackups keeps the max most recent local backups. A non-positive max uses the configured one.
func (svc *Service) PruneBackups(ctx context.Context, max int) error {
	if max <= 0 {
		max = svc.maxBackup
	}
	return svc.local.PruneBackups(ctx, max)
}

// CreateRemoteBackup snapshots the current remote roster into a new file of the drive folder.
func (svc *Service) CreateRemoteBackup(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrNoCredential
	}
	if svc.remote == nil {
		return "", ErrRemoteDisabled
	}
	rs, err := svc.remote(ctx, credential)
	if err != nil {
		return "", err
	}
	return rs.CreateBackup(ctx)
}

// Info describes the local store and, when possible, the drive folder.
func (svc *Service) Info(ctx context.Context, credential string) (Info, error) {
	local, err := svc.local.Info(ctx)
	if err != nil {
		return Info{}, err
	}
	info := Info{Local: local}
	info.Remote = svc.tryRemote(ctx, credential, "folder info", func(rs RemoteStore) error {
		fi, err := rs.FolderInfo(ctx)
		if err != nil {
			return err
		}
		info.Folder = &fi
		return nil
	})
	return info, nil
}

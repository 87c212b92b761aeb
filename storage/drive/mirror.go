// Package drive mirrors the roster to a folder of a cloud drive.
//
// The Mirror only needs a handful of file operations, described by FileAPI.
// Adapters live in sub packages: gdrive talks to Google Drive, inmemdrive keeps files in memory.
package drive

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/core/student"
)

const (
	DefaultFolderName   = ".iep-tracker-data"
	DefaultDataFileName = "students-data.json"

	backupTimeLayout = "2006-01-02T15:04:05.000Z"
)

var backupStampReplacer = strings.NewReplacer(":", "-", ".", "-")

type (
	File struct {
		ID           string
		Name         string
		Folder       bool
		ModifiedTime time.Time
	}

	// FileAPI is the subset of a drive API the Mirror relies on.
	// Failures should be reported as *store.RemoteError; other errors are treated as transport failures.
	FileAPI interface {
		// Find returns the non-trashed files named exactly name, within parentID when set.
		Find(ctx context.Context, name, parentID string, foldersOnly bool) ([]File, error)
		List(ctx context.Context, parentID string) ([]File, error)
		CreateFolder(ctx context.Context, name string) (File, error)
		CreateFile(ctx context.Context, name, parentID string, content []byte) (File, error)
		UpdateFile(ctx context.Context, id string, content []byte) (File, error)
		Download(ctx context.Context, id string) ([]byte, error)
		Delete(ctx context.Context, id string) error
	}

	Options struct {
		FolderName   string
		DataFileName string
	}

	// Mirror stores the roster as a single JSON file of a well-known folder.
	// Writes are last-writer-wins: the file is replaced as a whole, without any version check.
	Mirror struct {
		api  FileAPI
		opts Options
	}
)

var _ store.RemoteStore = (*Mirror)(nil)

func NewMirror(api FileAPI, opts Options) *Mirror {
	if opts.FolderName == "" {
		opts.FolderName = DefaultFolderName
	}
	if opts.DataFileName == "" {
		opts.DataFileName = DefaultDataFileName
	}
	return &Mirror{api: api, opts: opts}
}

// remoteErr makes sure err is a *store.RemoteError.
func remoteErr(op string, err error) error {
	var rErr *store.RemoteError
	if errors.As(err, &rErr) {
		return err
	}
	return store.NewRemoteError(store.RemoteTransport, op, 0, err)
}

// EnsureFolder returns the id of the data folder, creating it when missing.
// Two clients racing here may both create the folder; the first match wins afterwards.
func (m *Mirror) EnsureFolder(ctx context.Context) (string, error) {
	folders, err := m.api.Find(ctx, m.opts.FolderName, "", true)
	if err != nil {
		return "", remoteErr("find folder", err)
	}
	if len(folders) > 0 {
		return folders[0].ID, nil
	}

	folder, err := m.api.CreateFolder(ctx, m.opts.FolderName)
	if err != nil {
		return "", remoteErr("create folder", err)
	}
	return folder.ID, nil
}

// FindDataFile returns the id of the data file of folderID, or "" when there is none.
func (m *Mirror) FindDataFile(ctx context.Context, folderID string) (string, error) {
	files, err := m.api.Find(ctx, m.opts.DataFileName, folderID, false)
	if err != nil {
		return "", remoteErr("find data file", err)
	}
	if len(files) == 0 {
		return "", nil
	}
	return files[0].ID, nil
}

func (m *Mirror) Save(ctx context.Context, students []student.Student) error {
	folderID, err := m.EnsureFolder(ctx)
	if err != nil {
		return err
	}
	fileID, err := m.FindDataFile(ctx, folderID)
	if err != nil {
		return err
	}

	content, err := json.MarshalIndent(store.NewRemoteDocument(students), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding roster")
	}

	if fileID != "" {
		if _, err = m.api.UpdateFile(ctx, fileID, content); err != nil {
			return remoteErr("update data file", err)
		}
		return nil
	}
	if _, err = m.api.CreateFile(ctx, m.opts.DataFileName, folderID, content); err != nil {
		return remoteErr("create data file", err)
	}
	return nil
}

// Load returns the mirrored roster, or an empty one when nothing was saved yet.
func (m *Mirror) Load(ctx context.Context) ([]student.Student, error) {
	folderID, err := m.EnsureFolder(ctx)
	if err != nil {
		return nil, err
	}
	fileID, err := m.FindDataFile(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if fileID == "" {
		return []student.Student{}, nil
	}

	content, err := m.api.Download(ctx, fileID)
	if err != nil {
		return nil, remoteErr("download data file", err)
	}

	var doc struct {
		Students *[]student.Student `json:"students"`
	}
	if err = json.Unmarshal(content, &doc); err != nil {
		return nil, errors.Wrap(store.ErrRemoteDataCorrupt, err.Error())
	}
	if doc.Students == nil {
		return nil, errors.Wrap(store.ErrRemoteDataCorrupt, "students is missing")
	}
	return student.Normalize(*doc.Students), nil
}

// ExportSnapshot writes students to a new file of the folder. An empty name selects the dated default.
func (m *Mirror) ExportSnapshot(ctx context.Context, students []student.Student, name string) (string, error) {
	if name == "" {
		name = store.ExportFileName()
	}
	folderID, err := m.EnsureFolder(ctx)
	if err != nil {
		return "", err
	}

	content, err := json.MarshalIndent(store.NewExportDocument(students), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding export")
	}
	if _, err = m.api.CreateFile(ctx, name, folderID, content); err != nil {
		return "", remoteErr("create export file", err)
	}
	return name, nil
}

// CreateBackup exports the currently mirrored roster to a timestamped file.
func (m *Mirror) CreateBackup(ctx context.Context) (string, error) {
	students, err := m.Load(ctx)
	if err != nil {
		return "", err
	}
	stamp := backupStampReplacer.Replace(store.NowFunc().UTC().Format(backupTimeLayout))
	name := "backup-" + stamp + ".json"
	return m.ExportSnapshot(ctx, students, name)
}

// DeleteAll deletes every file of the folder, whichever client created it.
func (m *Mirror) DeleteAll(ctx context.Context) error {
	folderID, err := m.EnsureFolder(ctx)
	if err != nil {
		return err
	}
	files, err := m.api.List(ctx, folderID)
	if err != nil {
		return remoteErr("list files", err)
	}
	for _, f := range files {
		if err = m.api.Delete(ctx, f.ID); err != nil {
			return remoteErr("delete "+f.Name, err)
		}
	}
	return nil
}

func (m *Mirror) FolderInfo(ctx context.Context) (store.RemoteInfo, error) {
	folderID, err := m.EnsureFolder(ctx)
	if err != nil {
		return store.RemoteInfo{}, err
	}
	files, err := m.api.List(ctx, folderID)
	if err != nil {
		return store.RemoteInfo{}, remoteErr("list files", err)
	}

	info := store.RemoteInfo{FolderID: folderID, FileCount: len(files)}
	for _, f := range files {
		if f.Name == m.opts.DataFileName && !f.ModifiedTime.IsZero() {
			ts := f.ModifiedTime
			info.LastModified = &ts
			break
		}
	}
	return info, nil
}

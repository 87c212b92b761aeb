package inmemdrive

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/storage/drive"
)

// Operations that can be made to fail with FailOn.
const (
	OpFind         = "find"
	OpList         = "list"
	OpCreateFolder = "createFolder"
	OpCreateFile   = "createFile"
	OpUpdateFile   = "updateFile"
	OpDownload     = "download"
	OpDelete       = "delete"
)

var NowFunc = time.Now // mockable

type file struct {
	drive.File
	parentID string
	content  []byte
}

// Drive is an in-memory drive.FileAPI.
type Drive struct {
	mu       sync.Mutex
	files    map[string]*file
	seq      int
	failures map[string]error
	calls    map[string]int
}

var _ drive.FileAPI = (*Drive)(nil)

func New() *Drive {
	return &Drive{
		files:    make(map[string]*file),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// FailOn makes every later call of op return err. A nil err clears the failure.
func (d *Drive) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, op)
		return
	}
	d.failures[op] = err
}

// FailAll makes every operation fail with a remote error of kind.
func (d *Drive) FailAll(kind store.RemoteErrorKind, status int) {
	for _, op := range []string{OpFind, OpList, OpCreateFolder, OpCreateFile, OpUpdateFile, OpDownload, OpDelete} {
		d.FailOn(op, store.NewRemoteError(kind, op, status, nil))
	}
}

// Calls returns how many times op was called.
func (d *Drive) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// begin records a call of op and returns its injected failure. Callers hold d.mu.
func (d *Drive) begin(op string) error {
	d.calls[op]++
	return d.failures[op]
}

func (d *Drive) add(name, parentID string, folder bool, content []byte) drive.File {
	d.seq++
	f := &file{
		File: drive.File{
			ID:           strconv.Itoa(d.seq),
			Name:         name,
			Folder:       folder,
			ModifiedTime: NowFunc().UTC(),
		},
		parentID: parentID,
		content:  append([]byte(nil), content...),
	}
	d.files[f.ID] = f
	return f.File
}

func (d *Drive) sorted(match func(f *file) bool) []drive.File {
	res := make([]drive.File, 0)
	for _, f := range d.files {
		if match(f) {
			res = append(res, f.File)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		a, _ := strconv.Atoi(res[i].ID)
		b, _ := strconv.Atoi(res[j].ID)
		return a < b
	})
	return res
}

func (d *Drive) Find(_ context.Context, name, parentID string, foldersOnly bool) ([]drive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpFind); err != nil {
		return nil, err
	}
	return d.sorted(func(f *file) bool {
		return f.Name == name && (parentID == "" || f.parentID == parentID) && (!foldersOnly || f.Folder)
	}), nil
}

func (d *Drive) List(_ context.Context, parentID string) ([]drive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpList); err != nil {
		return nil, err
	}
	return d.sorted(func(f *file) bool { return f.parentID == parentID }), nil
}

func (d *Drive) CreateFolder(_ context.Context, name string) (drive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpCreateFolder); err != nil {
		return drive.File{}, err
	}
	return d.add(name, "", true, nil), nil
}

func (d *Drive) CreateFile(_ context.Context, name, parentID string, content []byte) (drive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpCreateFile); err != nil {
		return drive.File{}, err
	}
	if p, ok := d.files[parentID]; !ok || !p.Folder {
		return drive.File{}, store.NewRemoteError(store.RemoteHTTP, OpCreateFile, 404, nil)
	}
	return d.add(name, parentID, false, content), nil
}

func (d *Drive) UpdateFile(_ context.Context, id string, content []byte) (drive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpUpdateFile); err != nil {
		return drive.File{}, err
	}
	f, ok := d.files[id]
	if !ok {
		return drive.File{}, store.NewRemoteError(store.RemoteHTTP, OpUpdateFile, 404, nil)
	}
	f.content = append([]byte(nil), content...)
	f.ModifiedTime = NowFunc().UTC()
	return f.File, nil
}

func (d *Drive) Download(_ context.Context, id string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpDownload); err != nil {
		return nil, err
	}
	f, ok := d.files[id]
	if !ok {
		return nil, store.NewRemoteError(store.RemoteHTTP, OpDownload, 404, nil)
	}
	return append([]byte(nil), f.content...), nil
}

func (d *Drive) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpDelete); err != nil {
		return err
	}
	if _, ok := d.files[id]; !ok {
		return store.NewRemoteError(store.RemoteHTTP, OpDelete, 404, nil)
	}
	delete(d.files, id)
	return nil
}

// PutFolder and Put store files directly, bypassing failure injection. Meant for tests.
func (d *Drive) PutFolder(name string) drive.File {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.add(name, "", true, nil)
}

func (d *Drive) Put(name, parentID string, content []byte) drive.File {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.add(name, parentID, false, content)
}

// Content returns the content of the first file named name, and whether it exists.
func (d *Drive) Content(name string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	matches := d.sorted(func(f *file) bool { return f.Name == name && !f.Folder })
	if len(matches) == 0 {
		return nil, false
	}
	return d.files[matches[0].ID].content, true
}

// Files returns the names of all the files and folders, in creation order.
func (d *Drive) Files() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.files))
	for _, f := range d.sorted(func(*file) bool { return true }) {
		names = append(names, f.Name)
	}
	return names
}

// Factory returns a store.RemoteFactory mirroring every credential to d.
func Factory(d *Drive, opts drive.Options) store.RemoteFactory {
	return func(_ context.Context, _ string) (store.RemoteStore, error) {
		return drive.NewMirror(d, opts), nil
	}
}

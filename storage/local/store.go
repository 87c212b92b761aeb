// Package local implements the on-device roster store with its rolling daily backups.
package local

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/core/dates"
	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/core/student"
	"github.com/trezcool/ieptracker/storage/kv"
)

const (
	StudentsKey       = "iep-tracker-students"
	BackupPrefix      = "iep-tracker-backup-"
	DefaultMaxBackups = 7
)

type Store struct {
	kv         kv.Store
	log        core.Logger
	maxBackups int
}

var _ store.LocalStore = (*Store)(nil)

// New returns a Store over backend keeping at most maxBackups daily backups (DefaultMaxBackups when not positive).
func New(backend kv.Store, logger core.Logger, maxBackups int) *Store {
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}
	return &Store{kv: backend, log: logger, maxBackups: maxBackups}
}

// BackupKey returns the key of the backup taken on d.
func BackupKey(d dates.Date) string {
	return BackupPrefix + d.String()
}

func (s *Store) Save(ctx context.Context, students []student.Student) error {
	return s.put(ctx, StudentsKey, store.NewLocalDocument(students))
}

func (s *Store) put(ctx context.Context, key string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding roster")
	}
	if err = s.kv.Set(ctx, key, data); err != nil {
		return store.NewStorageError(err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) []student.Student {
	data, err := s.kv.Get(ctx, StudentsKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("reading local roster failed, starting empty", err)
		}
		return []student.Student{}
	}

	students, err := decodeRoster(data)
	if err != nil {
		s.log.Warn("invalid local roster, starting empty", err)
		return []student.Student{}
	}
	return students
}

// CreateAutoBackup writes today's backup, replacing an earlier one of the same day, then prunes old backups.
func (s *Store) CreateAutoBackup(ctx context.Context, students []student.Student) error {
	key := BackupKey(dates.Of(store.NowFunc().UTC()))
	if err := s.put(ctx, key, store.NewBackupDocument(students)); err != nil {
		return err
	}
	return s.PruneBackups(ctx, s.maxBackups)
}

// ListBackups returns the readable backups, newest first.
func (s *Store) ListBackups(ctx context.Context) ([]store.BackupInfo, error) {
	keys, err := s.kv.Keys(ctx, BackupPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "listing backups")
	}

	backups := make([]store.BackupInfo, 0, len(keys))
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err != nil {
			s.log.Warn("reading backup failed", key, err)
			continue
		}
		var doc struct {
			BackupDate *time.Time      `json:"backupDate"`
			Students   json.RawMessage `json:"students"`
		}
		if err = json.Unmarshal(data, &doc); err != nil {
			s.log.Warn("invalid backup data", key, err)
			continue
		}

		info := store.BackupInfo{Key: key}
		if n := countEntries(doc.Students); n > 0 {
			info.StudentCount = n
		}
		info.Date, _ = dates.Parse(strings.TrimPrefix(key, BackupPrefix))
		if doc.BackupDate != nil {
			info.BackupDate = doc.BackupDate.UTC()
		} else {
			info.BackupDate = info.Date.Time()
		}
		backups = append(backups, info)
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if !backups[i].BackupDate.Equal(backups[j].BackupDate) {
			return backups[i].BackupDate.After(backups[j].BackupDate)
		}
		return backups[i].Key > backups[j].Key
	})
	return backups, nil
}

func (s *Store) RestoreBackup(ctx context.Context, key string) ([]student.Student, error) {
	if !strings.HasPrefix(key, BackupPrefix) {
		return nil, store.ErrBackupNotFound
	}
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, store.ErrBackupNotFound
		}
		return nil, errors.Wrapf(err, "reading backup %s", key)
	}

	students, err := decodeRoster(data)
	if err != nil {
		return nil, errors.Wrap(store.ErrBackupCorrupt, err.Error())
	}
	return students, nil
}

// PruneBackups deletes all but the max most recent backups.
func (s *Store) PruneBackups(ctx context.Context, max int) error {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= max {
		return nil
	}

	old := backups[max:]
	for _, b := range old {
		if err = s.kv.Delete(ctx, b.Key); err != nil {
			return errors.Wrapf(err, "deleting backup %s", b.Key)
		}
	}
	s.log.Info("pruned old backups", map[string]interface{}{"deleted": len(old)})
	return nil
}

// Clear removes the roster and every backup, readable or not.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.kv.Keys(ctx, BackupPrefix)
	if err != nil {
		return errors.Wrap(err, "listing backups")
	}
	for _, key := range append(keys, StudentsKey) {
		if err = s.kv.Delete(ctx, key); err != nil {
			return errors.Wrapf(err, "deleting %s", key)
		}
	}
	return nil
}

func (s *Store) Info(ctx context.Context) (store.LocalInfo, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return store.LocalInfo{}, err
	}
	info := store.LocalInfo{BackupCount: len(backups)}

	data, err := s.kv.Get(ctx, StudentsKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return info, nil
		}
		return info, errors.Wrap(err, "reading roster")
	}
	info.SizeBytes = len(data)

	var doc struct {
		Timestamp *time.Time `json:"timestamp"`
	}
	if json.Unmarshal(data, &doc) == nil && doc.Timestamp != nil {
		ts := doc.Timestamp.UTC()
		info.LastSaved = &ts
	}
	return info, nil
}

// decodeRoster reads a document carrying a students array.
func decodeRoster(data []byte) ([]student.Student, error) {
	var doc struct {
		Students json.RawMessage `json:"students"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if countEntries(doc.Students) < 0 {
		return nil, errors.New("students is not an array")
	}
	var students []student.Student
	if err := json.Unmarshal(doc.Students, &students); err != nil {
		return nil, err
	}
	return student.Normalize(students), nil
}

// countEntries returns the length of a JSON array, or -1 when raw is not one.
func countEntries(raw json.RawMessage) int {
	var items []json.RawMessage
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "[") || json.Unmarshal(raw, &items) != nil {
		return -1
	}
	return len(items)
}

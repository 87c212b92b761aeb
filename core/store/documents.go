package store

import (
	"time"

	"github.com/trezcool/ieptracker/core/dates"
	"github.com/trezcool/ieptracker/core/student"
)

const (
	DocumentVersion = "1.0"
	AppName         = "IEP Tracker"
)

var NowFunc = time.Now // mockable

// LocalDocument is the primary roster document of the local store.
type LocalDocument struct {
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Students  []student.Student `json:"students"`
}

// BackupDocument is a dated snapshot of the roster kept by the local store.
type BackupDocument struct {
	Version    string            `json:"version"`
	BackupDate time.Time         `json:"backupDate"`
	Students   []student.Student `json:"students"`
}

type RemoteMetadata struct {
	TotalStudents int       `json:"totalStudents"`
	TotalGoals    int       `json:"totalGoals"`
	LastModified  time.Time `json:"lastModified"`
}

// RemoteDocument is the roster document mirrored to the drive folder.
type RemoteDocument struct {
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Students  []student.Student `json:"students"`
	Metadata  RemoteMetadata    `json:"metadata"`
}

type ExportInfo struct {
	Version       string    `json:"version"`
	ExportDate    time.Time `json:"exportDate"`
	TotalStudents int       `json:"totalStudents"`
	TotalGoals    int       `json:"totalGoals"`
	AppName       string    `json:"appName"`
}

// ExportDocument is the format of manual exports, both downloaded and written to the drive.
type ExportDocument struct {
	ExportInfo ExportInfo        `json:"exportInfo"`
	Students   []student.Student `json:"students"`
}

func NewLocalDocument(students []student.Student) LocalDocument {
	return LocalDocument{
		Version:   DocumentVersion,
		Timestamp: NowFunc().UTC(),
		Students:  nonNil(students),
	}
}

func NewBackupDocument(students []student.Student) BackupDocument {
	return BackupDocument{
		Version:    DocumentVersion,
		BackupDate: NowFunc().UTC(),
		Students:   nonNil(students),
	}
}

func NewRemoteDocument(students []student.Student) RemoteDocument {
	now := NowFunc().UTC()
	return RemoteDocument{
		Version:   DocumentVersion,
		Timestamp: now,
		Students:  nonNil(students),
		Metadata: RemoteMetadata{
			TotalStudents: len(students),
			TotalGoals:    student.TotalGoals(students),
			LastModified:  now,
		},
	}
}

func NewExportDocument(students []student.Student) ExportDocument {
	return ExportDocument{
		ExportInfo: ExportInfo{
			Version:       DocumentVersion,
			ExportDate:    NowFunc().UTC(),
			TotalStudents: len(students),
			TotalGoals:    student.TotalGoals(students),
			AppName:       AppName,
		},
		Students: nonNil(students),
	}
}

// ExportFileName returns the default name of an export made today.
func ExportFileName() string {
	return "iep-export-" + dates.Of(NowFunc()).String() + ".json"
}

// BackupInfo describes a local backup without its roster.
type BackupInfo struct {
	Key          string     `json:"key"`
	Date         dates.Date `json:"date"`
	BackupDate   time.Time  `json:"backupDate"`
	StudentCount int        `json:"studentCount"`
}

// LocalInfo describes the local store contents.
type LocalInfo struct {
	SizeBytes   int        `json:"sizeBytes"`
	BackupCount int        `json:"backupCount"`
	LastSaved   *time.Time `json:"lastSaved"`
}

// RemoteInfo describes the drive folder, for display only.
type RemoteInfo struct {
	FolderID     string     `json:"folderId"`
	FileCount    int        `json:"fileCount"`
	LastModified *time.Time `json:"lastModified"`
}

func nonNil(students []student.Student) []student.Student {
	if students == nil {
		return []student.Student{}
	}
	return students
}

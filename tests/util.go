// Package testutil wires the storage stack over in-memory backends for the surface tests.
package testutil

import (
	"testing"
	"time"

	"github.com/trezcool/ieptracker/core/dates"
	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/core/student"
	logsvc "github.com/trezcool/ieptracker/services/logger"
	"github.com/trezcool/ieptracker/storage/drive"
	inmemdrive "github.com/trezcool/ieptracker/storage/drive/inmem"
	inmemkv "github.com/trezcool/ieptracker/storage/kv/inmem"
	"github.com/trezcool/ieptracker/storage/local"
)

type Stack struct {
	KV     *inmemkv.Store
	Drive  *inmemdrive.Drive
	Local  *local.Store
	Remote *drive.Mirror
	Store  *store.Service
	Logger *logsvc.ConsoleLogger
}

// NewStack returns a storage Service over an unlimited in-memory store and an in-memory drive.
func NewStack() *Stack {
	s := &Stack{
		KV:     inmemkv.New(0),
		Drive:  inmemdrive.New(),
		Logger: logsvc.NewSilentLogger(),
	}
	s.Local = local.New(s.KV, s.Logger, local.DefaultMaxBackups)
	s.Remote = drive.NewMirror(s.Drive, drive.Options{})
	s.Store = store.NewService(s.Local, inmemdrive.Factory(s.Drive, drive.Options{}), s.Logger, local.DefaultMaxBackups)
	return s
}

// MockNow freezes the clocks of the dates and store packages at ts until the test ends.
func MockNow(t *testing.T, ts time.Time) {
	t.Helper()
	dates.NowFunc = func() time.Time { return ts }
	store.NowFunc = func() time.Time { return ts }
	t.Cleanup(func() {
		dates.NowFunc = time.Now
		store.NowFunc = time.Now
	})
}

// SampleRoster returns two students: Ada has a daily goal assessed on 2025-08-15, Bob has none.
func SampleRoster() []student.Student {
	return []student.Student{
		{
			StudentID:   "s1",
			StudentName: "Lovelace, Ada",
			Goals: []student.Goal{{
				GoalID:      "g1",
				Title:       "Reading",
				Description: "Reads 3 sentences",
				StartDate:   dates.MustParse("2025-08-01"),
				EndDate:     dates.MustParse("2026-08-01"),
				Frequency:   student.FrequencyDaily,
				AssessmentResults: []student.AssessmentResult{
					{Date: dates.MustParse("2025-08-15"), Result: student.ResultPass},
					{Date: dates.MustParse("2025-08-15"), Result: student.ResultFail},
				},
				Notes: []student.GoalNote{
					{NoteID: "n1", Date: dates.MustParse("2025-08-15"), Note: "Tired"},
				},
			}},
		},
		{StudentID: "s2", StudentName: "Smith, Bob", Goals: []student.Goal{}},
	}
}

package roster

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/core/student"
)

const DefaultAutosaveDelay = time.Second

// Saver persists a roster. *store.Service is the production Saver.
type Saver interface {
	Save(ctx context.Context, students []student.Student, credential string) (store.SaveResult, error)
}

var _ Saver = (*store.Service)(nil)

type (
	// SaveStatus describes the last save made by an Autosaver.
	SaveStatus struct {
		At     time.Time        `json:"at"`
		Result store.SaveResult `json:"result"`
		Error  string           `json:"error,omitempty"`
	}

	pendingSave struct {
		version    uint64
		students   []student.Student
		credential string
	}

	// Autosaver coalesces bursts of changes into a single save, made delay after the last change.
	Autosaver struct {
		saver Saver
		delay time.Duration
		log   core.Logger

		mu      sync.Mutex
		timer   *time.Timer
		gen     uint64 // identifies the running timer
		version uint64 // highest version scheduled
		pending *pendingSave
		last    *SaveStatus

		saveMu sync.Mutex // held from taking a snapshot until it is saved
	}
)

func NewAutosaver(saver Saver, delay time.Duration, logger core.Logger) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Autosaver{saver: saver, delay: delay, log: logger}
}

// Hook returns a ChangeFunc scheduling the changed roster with the credential of the mutation context.
func (a *Autosaver) Hook() ChangeFunc {
	return func(ctx context.Context, version uint64, students []student.Student) {
		a.Schedule(version, students, CredentialFrom(ctx))
	}
}

// Schedule replaces the pending snapshot and restarts the delay.
// A snapshot older than the last scheduled one is dropped.
func (a *Autosaver) Schedule(version uint64, students []student.Student, credential string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if version < a.version {
		a.log.Debug("dropped stale roster snapshot", map[string]interface{}{
			"version": version,
			"latest":  a.version,
		})
		return
	}
	a.version = version
	a.pending = &pendingSave{version: version, students: students, credential: credential}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

// take removes and returns the pending snapshot, if any. Callers hold a.mu.
func (a *Autosaver) take() *pendingSave {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	p := a.pending
	a.pending = nil
	return p
}

// fire saves the pending snapshot, unless the timer was replaced or stopped since it was armed.
func (a *Autosaver) fire(gen uint64) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	p := a.take()
	a.mu.Unlock()

	if p != nil {
		_ = a.save(context.Background(), p)
	}
}

// Callers hold a.saveMu.
func (a *Autosaver) save(ctx context.Context, p *pendingSave) error {
	res, err := a.saver.Save(ctx, p.students, p.credential)
	status := &SaveStatus{At: store.NowFunc().UTC(), Result: res}
	if err != nil {
		status.Error = err.Error()
		a.log.Error("autosave failed", err)
	} else {
		a.log.Debug("autosaved roster", map[string]interface{}{
			"students": len(p.students),
			"version":  p.version,
			"remote":   res.Remote.OK,
		})
	}

	a.mu.Lock()
	a.last = status
	a.mu.Unlock()
	return err
}

// Flush saves the pending snapshot now. It is a no-op when nothing is pending.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	p := a.take()
	a.mu.Unlock()

	if p != nil {
		return a.save(ctx, p)
	}
	return nil
}

// Stop drops the pending snapshot. It returns once a save already running has completed.
func (a *Autosaver) Stop() {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.take()
}

func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// LastSave returns the status of the last completed save, if any.
func (a *Autosaver) LastSave() (SaveStatus, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return SaveStatus{}, false
	}
	return *a.last, true
}

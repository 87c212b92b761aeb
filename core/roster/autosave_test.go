package roster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/core/student"
	logsvc "github.com/trezcool/ieptracker/services/logger"
)

type savedCall struct {
	students   []student.Student
	credential string
}

type fakeSaver struct {
	mu    sync.Mutex
	calls []savedCall
	err   error
}

func (f *fakeSaver) Save(_ context.Context, students []student.Student, credential string) (store.SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, savedCall{students: students, credential: credential})
	if f.err != nil {
		return store.SaveResult{}, f.err
	}
	return store.SaveResult{Local: store.LocalResult{Saved: true}}, nil
}

func (f *fakeSaver) saved() []savedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]savedCall(nil), f.calls...)
}

func named(name string) []student.Student {
	return []student.Student{{StudentID: name, StudentName: name, Goals: []student.Goal{}}}
}

func TestAutosaver_debounce(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutosaver(saver, 30*time.Millisecond, logsvc.NewSilentLogger())

	a.Schedule(1, named("a"), "")
	a.Schedule(2, named("b"), "")
	a.Schedule(3, named("c"), "token")
	assert.True(t, a.Pending())
	assert.Empty(t, saver.saved(), "nothing is saved before the delay")

	require.Eventually(t, func() bool { return len(saver.saved()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	calls := saver.saved()
	require.Len(t, calls, 1, "a burst is coalesced into one save")
	assert.Equal(t, named("c"), calls[0].students)
	assert.Equal(t, "token", calls[0].credential)
	assert.False(t, a.Pending())

	status, ok := a.LastSave()
	require.True(t, ok)
	assert.True(t, status.Result.Local.Saved)
	assert.Empty(t, status.Error)
}

func TestAutosaver_Flush(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutosaver(saver, time.Hour, logsvc.NewSilentLogger())

	require.NoError(t, a.Flush(context.Background()))
	assert.Empty(t, saver.saved())

	a.Schedule(1, named("a"), "")
	a.Schedule(2, named("b"), "")
	require.NoError(t, a.Flush(context.Background()))

	calls := saver.saved()
	require.Len(t, calls, 1)
	assert.Equal(t, named("b"), calls[0].students)
	assert.False(t, a.Pending())

	require.NoError(t, a.Flush(context.Background()))
	assert.Len(t, saver.saved(), 1)
}

func TestAutosaver_Stop(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutosaver(saver, 20*time.Millisecond, logsvc.NewSilentLogger())

	a.Schedule(1, named("a"), "")
	a.Stop()
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, saver.saved())
	assert.False(t, a.Pending())
	_, ok := a.LastSave()
	assert.False(t, ok)
}

func TestAutosaver_failure(t *testing.T) {
	saver := &fakeSaver{err: store.ErrStorageFailure}
	log := logsvc.NewSilentLogger()
	a := NewAutosaver(saver, time.Hour, log)

	a.Schedule(1, named("a"), "")
	err := a.Flush(context.Background())
	assert.True(t, errors.Is(err, store.ErrStorageFailure))

	status, ok := a.LastSave()
	require.True(t, ok)
	assert.Equal(t, store.ErrStorageFailure.Error(), status.Error)
	assert.Len(t, log.Entries("error"), 1)
}

func TestAutosaver_Hook(t *testing.T) {
	mockIDs(t)
	saver := &fakeSaver{}
	a := NewAutosaver(saver, time.Hour, logsvc.NewSilentLogger())
	s := NewState(nil)
	s.OnChange(a.Hook())

	ctx := WithCredential(context.Background(), "token")
	_, err := s.AddStudent(ctx, NewStudent{StudentID: "s1", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteStudent(ctx, "s1"))
	assert.True(t, a.Pending())

	require.NoError(t, a.Flush(context.Background()))
	calls := saver.saved()
	require.Len(t, calls, 1)
	assert.Equal(t, []student.Student{}, calls[0].students)
	assert.Equal(t, "token", calls[0].credential)
}

func TestAutosaver_Schedule_stale(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutosaver(saver, time.Hour, logsvc.NewSilentLogger())

	a.Schedule(2, named("b"), "")
	a.Schedule(1, named("a"), "")
	require.NoError(t, a.Flush(context.Background()))

	// a late snapshot is dropped even once the newer one was saved
	a.Schedule(1, named("a"), "")
	assert.False(t, a.Pending())

	calls := saver.saved()
	require.Len(t, calls, 1)
	assert.Equal(t, named("b"), calls[0].students)
}

func TestAutosaver_Hook_outOfOrder(t *testing.T) {
	mockIDs(t)
	saver := &fakeSaver{}
	a := NewAutosaver(saver, time.Hour, logsvc.NewSilentLogger())
	s := NewState(nil)

	// the hooks of the first mutation are held until the second mutation has run its own
	held, release := make(chan struct{}), make(chan struct{})
	var once sync.Once
	s.OnChange(func(context.Context, uint64, []student.Student) {
		first := false
		once.Do(func() { first = true })
		if first {
			close(held)
			<-release
		}
	})
	s.OnChange(a.Hook())

	done := make(chan error)
	go func() {
		_, err := s.AddStudent(context.Background(), NewStudent{StudentID: "a", FirstName: "A", LastName: "A"})
		done <- err
	}()
	<-held
	_, err := s.AddStudent(context.Background(), NewStudent{StudentID: "b", FirstName: "B", LastName: "B"})
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	require.NoError(t, a.Flush(context.Background()))
	calls := saver.saved()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].students, 2)
	assert.Equal(t, s.Students(), calls[0].students)
}

func TestAutosaver_fire_replacedTimer(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutosaver(saver, time.Hour, logsvc.NewSilentLogger())

	a.Schedule(1, named("a"), "")
	a.mu.Lock()
	gen := a.gen
	a.mu.Unlock()
	a.Schedule(2, named("b"), "")

	// a timer that expired while being replaced saves nothing
	a.fire(gen)
	assert.Empty(t, saver.saved())
	assert.True(t, a.Pending())
	a.Stop()
}

// blockingSaver holds every save until released.
type blockingSaver struct {
	fakeSaver
	started chan struct{}
	release chan struct{}
}

func (b *blockingSaver) Save(ctx context.Context, students []student.Student, credential string) (store.SaveResult, error) {
	close(b.started)
	<-b.release
	return b.fakeSaver.Save(ctx, students, credential)
}

func TestAutosaver_Stop_waitsForSave(t *testing.T) {
	saver := &blockingSaver{started: make(chan struct{}), release: make(chan struct{})}
	a := NewAutosaver(saver, time.Millisecond, logsvc.NewSilentLogger())

	a.Schedule(1, named("a"), "")
	<-saver.started

	stopped := make(chan struct{})
	go func() {
		a.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a save was running")
	case <-time.After(30 * time.Millisecond):
	}

	close(saver.release)
	<-stopped
	assert.Len(t, saver.saved(), 1)
}

func TestNewAutosaver_defaultDelay(t *testing.T) {
	a := NewAutosaver(&fakeSaver{}, 0, logsvc.NewSilentLogger())
	assert.Equal(t, DefaultAutosaveDelay, a.delay)
}

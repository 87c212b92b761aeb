// Package roster holds the in-memory roster edited by the surfaces and saves it in the background.
package roster

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/core/dates"
	"github.com/trezcool/ieptracker/core/student"
)

// ChangeFunc receives a private copy of the roster after each successful mutation.
// ctx is the context of the mutation; it may carry a drive credential (see WithCredential).
// version increases with every mutation. Hooks of concurrent mutations may run out of order:
// a snapshot with a lower version than one already received is stale.
type ChangeFunc func(ctx context.Context, version uint64, students []student.Student)

type credentialKey struct{}

// WithCredential returns a copy of ctx carrying the drive credential of the caller.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

func CredentialFrom(ctx context.Context) string {
	cred, _ := ctx.Value(credentialKey{}).(string)
	return cred
}

var newID = func() string { return uuid.New().String() } // mockable

// State is the roster being edited. It is safe for concurrent use.
type State struct {
	mu       sync.RWMutex
	students []student.Student
	version  uint64
	hooks    []ChangeFunc
}

func NewState(students []student.Student) *State {
	return &State{students: student.Normalize(student.Clone(students))}
}

// OnChange registers fn to be called after every mutation.
func (s *State) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Students returns a copy of the roster.
func (s *State) Students() []student.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return student.Clone(s.students)
}

func (s *State) Student(id string) (student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return student.Student{}, ErrStudentNotFound
	}
	return student.Clone(s.students[i : i+1])[0], nil
}

// Reset replaces the roster without notifying the hooks. Used when a roster is loaded from storage.
func (s *State) Reset(students []student.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = student.Normalize(student.Clone(students))
}

// Replace replaces the roster, e.g. with an imported or restored one.
func (s *State) Replace(ctx context.Context, students []student.Student) {
	_ = s.mutate(ctx, func() error {
		s.students = student.Normalize(student.Clone(students))
		return nil
	})
}

// mutate runs fn under the write lock, then notifies the hooks when fn succeeded.
func (s *State) mutate(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.version++
	version := s.version
	hooks := make([]ChangeFunc, len(s.hooks))
	copy(hooks, s.hooks)
	var snapshot []student.Student
	if len(hooks) > 0 {
		snapshot = student.Clone(s.students)
	}
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, version, student.Clone(snapshot))
	}
	return nil
}

// Callers hold s.mu.
func (s *State) indexOf(id string) int {
	for i := range s.students {
		if s.students[i].StudentID == id {
			return i
		}
	}
	return -1
}

// Callers hold s.mu.
func (s *State) goal(studentID, goalID string) (*student.Goal, error) {
	i := s.indexOf(studentID)
	if i < 0 {
		return nil, ErrStudentNotFound
	}
	for j := range s.students[i].Goals {
		if s.students[i].Goals[j].GoalID == goalID {
			return &s.students[i].Goals[j], nil
		}
	}
	return nil, ErrGoalNotFound
}

func (s *State) AddStudent(ctx context.Context, ns NewStudent) (student.Student, error) {
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	if err := core.ValidateStruct(ns); err != nil {
		return student.Student{}, err
	}
	if ns.StudentID == "" {
		ns.StudentID = newID()
	}

	today := dates.Today()
	stu := student.Student{
		StudentID:   ns.StudentID,
		StudentName: ns.LastName + ", " + ns.FirstName,
		Goals:       make([]student.Goal, 0, len(ns.Goals)),
	}
	for _, text := range ns.Goals {
		if text = core.CleanString(text); text == "" {
			continue
		}
		stu.Goals = append(stu.Goals, student.Goal{
			GoalID:            newID(),
			Title:             goalTitle(text),
			Description:       text,
			StartDate:         today,
			EndDate:           today.AddDays(goalYear),
			Frequency:         student.FrequencyWeekly,
			AssessmentResults: []student.AssessmentResult{},
			Notes:             []student.GoalNote{},
		})
	}

	err := s.mutate(ctx, func() error {
		if s.indexOf(stu.StudentID) >= 0 {
			return core.NewValidationError(ErrStudentExists, core.FieldError{Field: "studentId", Error: ErrStudentExists.Error()})
		}
		s.students = append(s.students, stu)
		return nil
	})
	if err != nil {
		return student.Student{}, err
	}
	return student.Clone([]student.Student{stu})[0], nil
}

func (s *State) RenameStudent(ctx context.Context, id string, us UpdateStudent) (student.Student, error) {
	us.StudentName = core.CleanString(us.StudentName)
	if err := core.ValidateStruct(us); err != nil {
		return student.Student{}, err
	}

	var renamed student.Student
	err := s.mutate(ctx, func() error {
		i := s.indexOf(id)
		if i < 0 {
			return ErrStudentNotFound
		}
		s.students[i].StudentName = us.StudentName
		renamed = student.Clone(s.students[i : i+1])[0]
		return nil
	})
	return renamed, err
}

func (s *State) DeleteStudent(ctx context.Context, id string) error {
	return s.mutate(ctx, func() error {
		i := s.indexOf(id)
		if i < 0 {
			return ErrStudentNotFound
		}
		s.students = append(s.students[:i], s.students[i+1:]...)
		return nil
	})
}

func (s *State) AddGoal(ctx context.Context, studentID string, ng NewGoal) (student.Goal, error) {
	ng.Title = core.CleanString(ng.Title)
	ng.Description = core.CleanString(ng.Description)
	if err := core.ValidateStruct(ng); err != nil {
		return student.Goal{}, err
	}

	goal := student.Goal{
		GoalID:            newID(),
		Title:             ng.Title,
		Description:       ng.Description,
		StartDate:         ng.StartDate,
		EndDate:           ng.EndDate,
		Frequency:         ng.Frequency,
		AssessmentResults: []student.AssessmentResult{},
		Notes:             []student.GoalNote{},
	}
	if ng.Frequency == student.FrequencyCustom {
		goal.CustomFrequencyDays = ng.CustomFrequencyDays
	}

	err := s.mutate(ctx, func() error {
		i := s.indexOf(studentID)
		if i < 0 {
			return ErrStudentNotFound
		}
		s.students[i].Goals = append(s.students[i].Goals, goal)
		return nil
	})
	if err != nil {
		return student.Goal{}, err
	}
	return goal, nil
}

func (s *State) DeleteGoal(ctx context.Context, studentID, goalID string) error {
	return s.mutate(ctx, func() error {
		i := s.indexOf(studentID)
		if i < 0 {
			return ErrStudentNotFound
		}
		goals := s.students[i].Goals
		for j := range goals {
			if goals[j].GoalID == goalID {
				s.students[i].Goals = append(goals[:j], goals[j+1:]...)
				return nil
			}
		}
		return ErrGoalNotFound
	})
}

// RecordAssessment appends a pass or fail trial to the goal.
func (s *State) RecordAssessment(ctx context.Context, studentID, goalID string, na NewAssessment) (student.AssessmentResult, error) {
	if err := core.ValidateStruct(na); err != nil {
		return student.AssessmentResult{}, err
	}
	if na.Date.IsZero() {
		na.Date = dates.Today()
	}
	res := student.AssessmentResult{Date: na.Date, Result: na.Result}

	err := s.mutate(ctx, func() error {
		goal, err := s.goal(studentID, goalID)
		if err != nil {
			return err
		}
		goal.AssessmentResults = append(goal.AssessmentResults, res)
		return nil
	})
	if err != nil {
		return student.AssessmentResult{}, err
	}
	return res, nil
}

// DeleteDayAssessments removes every trial of the goal recorded on day and returns how many were removed.
func (s *State) DeleteDayAssessments(ctx context.Context, studentID, goalID string, day dates.Date) (int, error) {
	var removed int
	err := s.mutate(ctx, func() error {
		goal, err := s.goal(studentID, goalID)
		if err != nil {
			return err
		}
		kept := make([]student.AssessmentResult, 0, len(goal.AssessmentResults))
		for _, r := range goal.AssessmentResults {
			if r.Date.Equal(day) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		goal.AssessmentResults = kept
		return nil
	})
	return removed, err
}

func (s *State) AddNote(ctx context.Context, studentID, goalID string, nn NewNote) (student.GoalNote, error) {
	nn.Note = core.CleanString(nn.Note)
	if err := core.ValidateStruct(nn); err != nil {
		return student.GoalNote{}, err
	}
	if nn.Date.IsZero() {
		nn.Date = dates.Today()
	}
	note := student.GoalNote{NoteID: newID(), Date: nn.Date, Note: nn.Note}

	err := s.mutate(ctx, func() error {
		goal, err := s.goal(studentID, goalID)
		if err != nil {
			return err
		}
		goal.Notes = append(goal.Notes, note)
		return nil
	})
	if err != nil {
		return student.GoalNote{}, err
	}
	return note, nil
}

// EditNote replaces the text of a note, keeping its date.
func (s *State) EditNote(ctx context.Context, studentID, goalID, noteID string, un UpdateNote) (student.GoalNote, error) {
	un.Note = core.CleanString(un.Note)
	if err := core.ValidateStruct(un); err != nil {
		return student.GoalNote{}, err
	}

	var edited student.GoalNote
	err := s.mutate(ctx, func() error {
		goal, err := s.goal(studentID, goalID)
		if err != nil {
			return err
		}
		for k := range goal.Notes {
			if goal.Notes[k].NoteID == noteID {
				goal.Notes[k].Note = un.Note
				edited = goal.Notes[k]
				return nil
			}
		}
		return ErrNoteNotFound
	})
	return edited, err
}

func (s *State) DeleteNote(ctx context.Context, studentID, goalID, noteID string) error {
	return s.mutate(ctx, func() error {
		goal, err := s.goal(studentID, goalID)
		if err != nil {
			return err
		}
		for k := range goal.Notes {
			if goal.Notes[k].NoteID == noteID {
				goal.Notes = append(goal.Notes[:k], goal.Notes[k+1:]...)
				return nil
			}
		}
		return ErrNoteNotFound
	})
}

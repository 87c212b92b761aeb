package roster

import (
	"errors"

	"github.com/trezcool/ieptracker/core/dates"
	"github.com/trezcool/ieptracker/core/student"
)

var (
	// errors
	ErrStudentNotFound = errors.New("student not found")
	ErrGoalNotFound    = errors.New("goal not found")
	ErrNoteNotFound    = errors.New("note not found")
	ErrStudentExists   = errors.New("a student with this id already exists")
)

const (
	goalTitleMaxLen = 50
	goalYear        = 365
)

type (
	// NewStudent creates a student named "Last, First".
	// Each entry of Goals becomes a weekly goal running for a year from today.
	NewStudent struct {
		StudentID string   `json:"studentId"`
		FirstName string   `json:"firstName" validate:"required"`
		LastName  string   `json:"lastName" validate:"required"`
		Goals     []string `json:"goals"`
	}

	UpdateStudent struct {
		StudentName string `json:"studentName" validate:"required"`
	}

	NewGoal struct {
		Title               string            `json:"title" validate:"required"`
		Description         string            `json:"description" validate:"required"`
		StartDate           dates.Date        `json:"startDate"`
		EndDate             dates.Date        `json:"endDate"`
		Frequency           student.Frequency `json:"frequency" validate:"required,frequency"`
		CustomFrequencyDays int               `json:"customFrequencyDays"`
	}

	// NewAssessment records one trial. A zero Date means today.
	NewAssessment struct {
		Date   dates.Date     `json:"date"`
		Result student.Result `json:"result" validate:"required,oneof=pass fail"`
	}

	// NewNote annotates a goal. A zero Date means today.
	NewNote struct {
		Date dates.Date `json:"date"`
		Note string     `json:"note" validate:"required"`
	}

	UpdateNote struct {
		Note string `json:"note" validate:"required"`
	}
)

// goalTitle shortens free text into a goal title.
func goalTitle(text string) string {
	runes := []rune(text)
	if len(runes) > goalTitleMaxLen {
		return string(runes[:goalTitleMaxLen]) + "..."
	}
	return text
}

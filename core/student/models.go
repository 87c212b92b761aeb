package student

import (
	"github.com/trezcool/ieptracker/core/dates"
)

// Frequencies
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyCustom    Frequency = "custom"

	defaultFrequencyDays = 7
)

var (
	Frequencies = []Frequency{
		FrequencyDaily,
		FrequencyWeekly,
		FrequencyBiweekly,
		FrequencyMonthly,
		FrequencyQuarterly,
		FrequencyCustom,
	}

	frequencyDays = map[Frequency]int{
		FrequencyDaily:     1,
		FrequencyWeekly:    7,
		FrequencyBiweekly:  14,
		FrequencyMonthly:   30,
		FrequencyQuarterly: 90,
	}
)

func (f Frequency) IsValid() bool {
	for _, freq := range Frequencies {
		if f == freq {
			return true
		}
	}
	return false
}

// Results
type Result string

const (
	ResultPass Result = "pass"
	ResultFail Result = "fail"
)

func (r Result) IsValid() bool {
	return r == ResultPass || r == ResultFail
}

type AssessmentResult struct {
	Date   dates.Date `json:"date"`
	Result Result     `json:"result"`
}

type GoalNote struct {
	NoteID string     `json:"noteId"`
	Date   dates.Date `json:"date"`
	Note   string     `json:"note"`
}

type Goal struct {
	GoalID              string             `json:"goalId"`
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	StartDate           dates.Date         `json:"startDate"`
	EndDate             dates.Date         `json:"endDate"`
	Frequency           Frequency          `json:"frequency"`
	CustomFrequencyDays int                `json:"customFrequencyDays,omitempty"` // only meaningful when Frequency is custom
	AssessmentResults   []AssessmentResult `json:"assessmentResults"`
	Notes               []GoalNote         `json:"notes"`
}

type Student struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Goals       []Goal `json:"goals"`
}

// TotalGoals counts the goals of all students.
func TotalGoals(students []Student) int {
	var n int
	for _, s := range students {
		n += len(s.Goals)
	}
	return n
}

// Normalize fills the optional collections older documents may lack, so callers never deal with nil slices.
// It also drops CustomFrequencyDays from goals that are not custom.
func Normalize(students []Student) []Student {
	if students == nil {
		return []Student{}
	}
	for i := range students {
		if students[i].Goals == nil {
			students[i].Goals = []Goal{}
		}
		for j := range students[i].Goals {
			g := &students[i].Goals[j]
			if g.AssessmentResults == nil {
				g.AssessmentResults = []AssessmentResult{}
			}
			if g.Notes == nil {
				g.Notes = []GoalNote{}
			}
			if g.Frequency != FrequencyCustom {
				g.CustomFrequencyDays = 0
			}
		}
	}
	return students
}

// Clone returns a deep copy of students.
func Clone(students []Student) []Student {
	if students == nil {
		return nil
	}
	cp := make([]Student, len(students))
	for i, s := range students {
		cp[i] = s
		if s.Goals == nil {
			continue
		}
		cp[i].Goals = make([]Goal, len(s.Goals))
		for j, g := range s.Goals {
			cp[i].Goals[j] = g
			if g.AssessmentResults != nil {
				cp[i].Goals[j].AssessmentResults = append([]AssessmentResult{}, g.AssessmentResults...)
			}
			if g.Notes != nil {
				cp[i].Goals[j].Notes = append([]GoalNote{}, g.Notes...)
			}
		}
	}
	return cp
}

package student

import (
	"math"
	"sort"

	"github.com/trezcool/ieptracker/core/dates"
)

const (
	// MasteryThreshold is the last-session pass rate a goal must exceed to count as mastered in reports.
	MasteryThreshold = 75.0

	reportNotesLimit = 5
)

type GoalSummary struct {
	Goal                  Goal        `json:"goal"`
	Frequency             string      `json:"frequency"`
	TotalAssessments      int         `json:"totalAssessments"`
	TotalPasses           int         `json:"totalPasses"`
	OverallPassPercentage int         `json:"overallPassPercentage"`
	PassPercentage        int         `json:"passPercentage"` // last session, shown on badges
	LastAssessmentDate    *dates.Date `json:"lastAssessmentDate"`
	DailyPassRates        []DailyRate `json:"dailyPassRates"`
	RecentNotes           []GoalNote  `json:"recentNotes"`
	HiddenNotes           int         `json:"hiddenNotes"`
}

// Report is the printable progress report of a single student.
type Report struct {
	Student             Student       `json:"student"`
	GeneratedOn         dates.Date    `json:"generatedOn"`
	Summaries           []GoalSummary `json:"summaries"`
	GoalsAboveThreshold int           `json:"goalsAboveThreshold"` // % of goals with last session > MasteryThreshold
	TotalSessions       int           `json:"totalSessions"`
}

// Summarize computes the report figures of goal.
func Summarize(goal Goal) GoalSummary {
	sum := GoalSummary{
		Goal:             goal,
		Frequency:        FormatFrequency(goal),
		TotalAssessments: len(goal.AssessmentResults),
		DailyPassRates:   DailyPassRates(goal),
	}
	for _, res := range goal.AssessmentResults {
		if res.Result == ResultPass {
			sum.TotalPasses++
		}
	}
	if sum.TotalAssessments > 0 {
		sum.OverallPassPercentage = roundPercent(passRate(sum.TotalPasses, sum.TotalAssessments))
	}
	if last := LastAssessment(goal); last != nil {
		d := last.Date
		sum.LastAssessmentDate = &d
	}

	if rate, ok := LastSessionRate(goal); ok {
		sum.PassPercentage = roundPercent(rate)
	} else {
		sum.PassPercentage = sum.OverallPassPercentage
	}

	sum.RecentNotes, sum.HiddenNotes = recentNotes(goal.Notes, reportNotesLimit)
	return sum
}

// BuildReport builds the progress report of stu.
func BuildReport(stu Student, today dates.Date) Report {
	rep := Report{
		Student:     stu,
		GeneratedOn: today,
		Summaries:   make([]GoalSummary, 0, len(stu.Goals)),
	}
	var above int
	for _, goal := range stu.Goals {
		sum := Summarize(goal)
		rep.Summaries = append(rep.Summaries, sum)
		rep.TotalSessions += len(sum.DailyPassRates)
		if n := len(sum.DailyPassRates); n > 0 && sum.DailyPassRates[n-1].PassRate > MasteryThreshold {
			above++
		}
	}
	if len(rep.Summaries) > 0 {
		rep.GoalsAboveThreshold = roundPercent(float64(above) / float64(len(rep.Summaries)) * 100)
	}
	return rep
}

// recentNotes returns up to limit notes, newest first, and the number of notes left out.
func recentNotes(notes []GoalNote, limit int) ([]GoalNote, int) {
	sorted := append([]GoalNote{}, notes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })
	if len(sorted) <= limit {
		return sorted, 0
	}
	return sorted[:limit], len(sorted) - limit
}

func roundPercent(p float64) int {
	return int(math.Round(p))
}

package student

import (
	"fmt"
	"sort"

	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/core/dates"
)

// States
type State string

const (
	StateCurrent State = "current"
	StateDue     State = "due"
	StateOverdue State = "overdue"
)

// Status is the scheduling state of a Goal relative to a given day.
type Status struct {
	State        State  `json:"status"`
	Message      string `json:"message"`
	DaysUntilDue int    `json:"daysUntilDue"`
	DaysOverdue  int    `json:"daysOverdue"`
	HasOffset    bool   `json:"hasOffset"` // false when the goal was never assessed
}

// DayTally aggregates the results recorded on a single day.
type DayTally struct {
	Date   dates.Date `json:"date"`
	Passes int        `json:"passes"`
	Fails  int        `json:"fails"`
	Total  int        `json:"total"`
}

// DailyRate is the pass rate (0-100) of a single day.
type DailyRate struct {
	Date     dates.Date `json:"date"`
	PassRate float64    `json:"passRate"`
}

// FrequencyInDays returns the expected number of days between two assessments of goal.
func FrequencyInDays(goal Goal) int {
	if goal.Frequency == FrequencyCustom {
		if goal.CustomFrequencyDays > 0 {
			return goal.CustomFrequencyDays
		}
		return defaultFrequencyDays
	}
	if days, ok := frequencyDays[goal.Frequency]; ok {
		return days
	}
	return defaultFrequencyDays
}

// LastAssessment returns the most recent result of goal, or nil if it was never assessed.
// The pick among several results of the latest day is unspecified.
func LastAssessment(goal Goal) *AssessmentResult {
	var last *AssessmentResult
	for i := range goal.AssessmentResults {
		res := &goal.AssessmentResults[i]
		if last == nil || res.Date.After(last.Date) {
			last = res
		}
	}
	if last == nil {
		return nil
	}
	cp := *last
	return &cp
}

// AssessmentStatus returns the status of goal as of today.
func AssessmentStatus(goal Goal) Status {
	return StatusAt(goal, dates.Today())
}

// StatusAt returns the status of goal as of the given day.
// Weekends are only skipped for daily goals.
func StatusAt(goal Goal, today dates.Date) Status {
	last := LastAssessment(goal)
	if last == nil {
		return Status{State: StateOverdue, Message: "No assessments yet"}
	}

	freq := FrequencyInDays(goal)
	since := dates.DaysBetween(last.Date, today, goal.Frequency == FrequencyDaily)

	switch {
	case since < freq:
		until := freq - since
		return Status{
			State:        StateCurrent,
			Message:      fmt.Sprintf("Due in %d %s", until, core.Plural(until, "day")),
			DaysUntilDue: until,
			HasOffset:    true,
		}
	case since == freq:
		return Status{State: StateDue, Message: "Due today", HasOffset: true}
	default:
		overdue := since - freq
		return Status{
			State:       StateOverdue,
			Message:     fmt.Sprintf("%d %s overdue", overdue, core.Plural(overdue, "day")),
			DaysOverdue: overdue,
			HasOffset:   true,
		}
	}
}

// GroupByDate tallies results per day, most recent day first.
func GroupByDate(results []AssessmentResult) []DayTally {
	idx := make(map[dates.Date]int)
	tallies := make([]DayTally, 0)
	for _, res := range results {
		i, ok := idx[res.Date]
		if !ok {
			i = len(tallies)
			idx[res.Date] = i
			tallies = append(tallies, DayTally{Date: res.Date})
		}
		tallies[i].Total++
		if res.Result == ResultPass {
			tallies[i].Passes++
		} else {
			tallies[i].Fails++
		}
	}
	sort.SliceStable(tallies, func(i, j int) bool { return tallies[i].Date.After(tallies[j].Date) })
	return tallies
}

// DailyPassRates returns the pass rate of every assessed day of goal, oldest day first.
func DailyPassRates(goal Goal) []DailyRate {
	tallies := GroupByDate(goal.AssessmentResults)
	rates := make([]DailyRate, 0, len(tallies))
	for i := len(tallies) - 1; i >= 0; i-- {
		tl := tallies[i]
		rates = append(rates, DailyRate{Date: tl.Date, PassRate: passRate(tl.Passes, tl.Total)})
	}
	return rates
}

// LastSessionRate returns the pass rate of the most recent assessed day.
// This, not the all-time average, is what status badges show.
func LastSessionRate(goal Goal) (float64, bool) {
	rates := DailyPassRates(goal)
	if len(rates) == 0 {
		return 0, false
	}
	return rates[len(rates)-1].PassRate, true
}

// TodayTally returns the results recorded on today for goal.
func TodayTally(goal Goal, today dates.Date) DayTally {
	tally := DayTally{Date: today}
	for _, res := range goal.AssessmentResults {
		if !res.Date.Equal(today) {
			continue
		}
		tally.Total++
		if res.Result == ResultPass {
			tally.Passes++
		} else {
			tally.Fails++
		}
	}
	return tally
}

// StatusCounts summarises the goals of a student that need attention.
type StatusCounts struct {
	DueToday int `json:"dueToday"`
	Overdue  int `json:"overdue"`
}

func (sc StatusCounts) UpToDate() bool {
	return sc.DueToday == 0 && sc.Overdue == 0
}

// StudentStatusCounts counts the due and overdue goals of stu as of today.
func StudentStatusCounts(stu Student, today dates.Date) StatusCounts {
	var counts StatusCounts
	for _, goal := range stu.Goals {
		switch StatusAt(goal, today).State {
		case StateDue:
			counts.DueToday++
		case StateOverdue:
			counts.Overdue++
		}
	}
	return counts
}

// FormatFrequency returns a human-readable frequency of goal.
func FormatFrequency(goal Goal) string {
	switch goal.Frequency {
	case FrequencyDaily:
		return "Daily"
	case FrequencyWeekly:
		return "Weekly"
	case FrequencyBiweekly:
		return "Bi-weekly"
	case FrequencyMonthly:
		return "Monthly"
	case FrequencyQuarterly:
		return "Quarterly"
	case FrequencyCustom:
		return fmt.Sprintf("Every %d days", FrequencyInDays(goal))
	default:
		return string(goal.Frequency)
	}
}

func passRate(passes, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passes) / float64(total) * 100
}

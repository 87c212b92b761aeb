// Package reportsvc renders progress reports as spreadsheets.
package reportsvc

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/ieptracker/core/dates"
	"github.com/trezcool/ieptracker/core/student"
)

const (
	SummarySheet = "Summary"
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxSheetNameLen = 31
)

var (
	summaryHeaders = []interface{}{
		"Student ID", "Student", "Goal", "Frequency", "Status",
		"Assessments", "Passes", "Overall %", "Last session %", "Last assessed", "Sessions",
	}
	historyHeaders = []interface{}{"Goal", "Date", "Passes", "Fails", "Total", "Pass rate %"}

	sheetNameReplacer = strings.NewReplacer(":", " ", `\`, " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")
)

// FileName returns the name of the workbook generated on today.
func FileName(today dates.Date) string {
	return "iep-progress-" + today.String() + ".xlsx"
}

// WriteWorkbook writes the progress workbook of students to w:
// a summary sheet with one row per goal, then one sheet per student with the daily history of each goal.
func WriteWorkbook(w io.Writer, students []student.Student, today dates.Date) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return errors.Wrap(err, "naming summary sheet")
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DCE6F1"}},
	})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}

	if err = writeSummary(f, students, today, headerStyle); err != nil {
		return err
	}

	used := map[string]bool{strings.ToLower(SummarySheet): true}
	for _, stu := range students {
		name := sheetName(stu, used)
		if _, err = f.NewSheet(name); err != nil {
			return errors.Wrapf(err, "creating sheet %q", name)
		}
		if err = writeHistory(f, name, stu, headerStyle); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err = f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

func writeSummary(f *excelize.File, students []student.Student, today dates.Date, headerStyle int) error {
	if err := writeHeader(f, SummarySheet, summaryHeaders, headerStyle); err != nil {
		return err
	}

	row := 2
	for _, stu := range students {
		if len(stu.Goals) == 0 {
			if err := setRow(f, SummarySheet, row, []interface{}{stu.StudentID, stu.StudentName}); err != nil {
				return err
			}
			row++
			continue
		}
		for _, goal := range stu.Goals {
			sum := student.Summarize(goal)
			status := student.StatusAt(goal, today)
			var lastAssessed string
			if sum.LastAssessmentDate != nil {
				lastAssessed = sum.LastAssessmentDate.String()
			}
			values := []interface{}{
				stu.StudentID,
				stu.StudentName,
				goal.Title,
				sum.Frequency,
				status.Message,
				sum.TotalAssessments,
				sum.TotalPasses,
				sum.OverallPassPercentage,
				sum.PassPercentage,
				lastAssessed,
				len(sum.DailyPassRates),
			}
			if err := setRow(f, SummarySheet, row, values); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.SetColWidth(SummarySheet, "B", "C", 32); err != nil {
		return errors.Wrap(err, "sizing summary columns")
	}
	return nil
}

func writeHistory(f *excelize.File, sheet string, stu student.Student, headerStyle int) error {
	if err := writeHeader(f, sheet, historyHeaders, headerStyle); err != nil {
		return err
	}

	row := 2
	for _, goal := range stu.Goals {
		for _, day := range student.GroupByDate(goal.AssessmentResults) {
			rate := float64(day.Passes) / float64(day.Total) * 100
			values := []interface{}{
				goal.Title,
				day.Date.String(),
				day.Passes,
				day.Fails,
				day.Total,
				fmt.Sprintf("%.1f", rate),
			}
			if err := setRow(f, sheet, row, values); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 32); err != nil {
		return errors.Wrapf(err, "sizing %q columns", sheet)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []interface{}, style int) error {
	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return errors.Wrap(err, "header range")
	}
	if err = f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return errors.Wrapf(err, "styling %q header", sheet)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrapf(err, "row %d", row)
	}
	if err = f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.Wrapf(err, "writing %q row %d", sheet, row)
	}
	return nil
}

// sheetName returns a valid, unused sheet name for stu and marks it used.
func sheetName(stu student.Student, used map[string]bool) string {
	base := strings.TrimSpace(sheetNameReplacer.Replace(stu.StudentName))
	if base == "" {
		base = strings.TrimSpace(sheetNameReplacer.Replace(stu.StudentID))
	}
	if base == "" {
		base = "Student"
	}
	base = strings.Trim(truncate(base, maxSheetNameLen), "'")

	name := base
	for i := 2; used[strings.ToLower(name)] || name == ""; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncate(base, maxSheetNameLen-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

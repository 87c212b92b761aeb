package dates

import "time"

const day = 24 * time.Hour

// DaysBetween counts the whole days from start to end.
// When excludeWeekends is set, only Monday to Friday are counted, walking from start (included) up to end (excluded),
// so a Friday assessment is one business day old on the following Monday.
func DaysBetween(start, end Date, excludeWeekends bool) int {
	if !excludeWeekends {
		return int(end.t.Sub(start.t) / day)
	}
	var count int
	for curr := start; curr.Before(end); curr = curr.AddDays(1) {
		if !IsWeekend(curr) {
			count++
		}
	}
	return count
}

// DaysSince counts the days from date to today.
func DaysSince(date Date, excludeWeekends bool) int {
	return DaysBetween(date, Today(), excludeWeekends)
}

// BusinessDaysUntil counts the business days from today to date.
func BusinessDaysUntil(date Date) int {
	return DaysBetween(Today(), date, true)
}

// AddBusinessDays moves forward n business days from start, skipping weekends.
func AddBusinessDays(start Date, n int) Date {
	result := start
	for added := 0; added < n; {
		result = result.AddDays(1)
		if !IsWeekend(result) {
			added++
		}
	}
	return result
}

func IsWeekend(d Date) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Package calendar produces the sequence of trading days inside a date range.
// Only weekends are excluded; market holidays are a known simplification and
// are handled downstream by forward-filling missing days.
package calendar

import "time"

// Days returns every business day from start to end inclusive, in ascending
// order, as canonical YYYY-MM-DD strings. The result depends only on the
// inputs; times of day are ignored.
func Days(start, end time.Time) []string {
	start = truncate(start)
	end = truncate(end)

	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, d.Format("2006-01-02"))
	}
	return days
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package utils

import (
	"fmt"
	"time"
)

// Monthly bond data uses a month-end date convention: every observation is
// stamped with the last calendar day of its month, in UTC.

// MonthEnd returns the last calendar day of t's month.
func MonthEnd(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// NextMonthEnd returns the last calendar day of the month after t's.
func NextMonthEnd(t time.Time) time.Time {
	return MonthEnd(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0))
}

// MonthKey returns t's month as "yyyymm", the grouping key for monthly sorts.
func MonthKey(t time.Time) string {
	return t.Format("200601")
}

// ParseYYYYMMDD parses a compact date like "20070131" to its month end.
func ParseYYYYMMDD(s string) (time.Time, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return MonthEnd(t), nil
}

// ParseYYYYMM parses a year-month like "200701" to its month end.
func ParseYYYYMM(s string) (time.Time, error) {
	t, err := time.Parse("200601", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse year-month %q: %w", s, err)
	}
	return MonthEnd(t), nil
}

// ParseISODate parses "2006-01-02". The day is kept as-is; callers that need
// month-end snapping wrap this with MonthEnd.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as "2006-01-02".
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

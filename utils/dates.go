// utils/dates.go
package utils

import (
	"fmt"
	"strconv"
	"time"
)

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	if !ValidateClock(s) {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, _ := strconv.Atoi(s[0:2])
	m, _ := strconv.Atoi(s[3:5])
	return h*60 + m, nil
}

// WithinClockWindow reports whether t falls in [start, end]. A window whose end
// is before its start spans midnight. Unparseable bounds never match.
func WithinClockWindow(t time.Time, start, end string) bool {
	from, err := ParseClock(start)
	if err != nil {
		return false
	}
	to, err := ParseClock(end)
	if err != nil {
		return false
	}
	now := t.Hour()*60 + t.Minute()
	if from <= to {
		return now >= from && now <= to
	}
	return now >= from || now <= to
}

// ParseDate accepts either a date ("2006-01-02") or an RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Package calendar enumerates the concrete dates on which a church's
// recurring weekly services take place.
package calendar

import (
	"time"

	"github.com/zapponejosh/organ-rotation/internal/database"
)

// ParseDateString parses a YYYY-MM-DD date string as midnight UTC.
func ParseDateString(dateStr string) (time.Time, error) {
	return time.Parse(database.DateLayout, dateStr)
}

// FormatDate formats a date as YYYY-MM-DD.
func FormatDate(date time.Time) string {
	return date.Format(database.DateLayout)
}

// DateOf returns the calendar date of t as seen in loc, at midnight UTC.
// All calendar arithmetic in this package runs on such values so that
// daylight-saving shifts never move a service to another day.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekdayOccurrence returns which occurrence of its weekday date is within
// its month: 1 for the first Monday, 2 for the second, and so on.
func WeekdayOccurrence(date time.Time) int {
	return (date.Day()-1)/7 + 1
}

// IsLastOccurrence reports whether no later day in date's month shares its
// weekday.
func IsLastOccurrence(date time.Time) bool {
	return date.AddDate(0, 0, 7).Month() != date.Month()
}

// OccursOn reports whether a service is due on date: the weekday must match
// and, when the service carries a monthly ordinal, so must the occurrence.
// Ordinal -1 selects the last occurrence in the month.
func OccursOn(s database.Service, date time.Time) bool {
	if date.Weekday() != s.Weekday {
		return false
	}
	if s.MonthlyOrdinal == nil {
		return true
	}

	switch ordinal := *s.MonthlyOrdinal; {
	case ordinal == -1:
		return IsLastOccurrence(date)
	case ordinal >= 1 && ordinal <= 5:
		return WeekdayOccurrence(date) == ordinal
	default:
		return false
	}
}

package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zapponejosh/organ-rotation/internal/database"
)

// ErrInvalidMonths is returned for a generation window other than 3, 6 or 12 months.
var ErrInvalidMonths = errors.New("months must be one of 3, 6, 12")

// ValidMonths reports whether months is an accepted window length.
func ValidMonths(months int) bool {
	switch months {
	case 3, 6, 12:
		return true
	}
	return false
}

// Window returns the half-open range [start, start+months) as dates.
func Window(start time.Time, months int) (from, until time.Time) {
	from = DateOf(start, time.UTC)
	return from, from.AddDate(0, months, 0)
}

// ServiceCalendar walks a generation window one date at a time, yielding the
// services due on each date. It is a one-shot iterator:
//
//	cal, err := calendar.NewServiceCalendar(start, 3, services)
//	for cal.Next() {
//	    day, due := cal.Date(), cal.Services()
//	}
//
// Dates with no due service are skipped. Services on one date are ordered
// by time of day, then id.
type ServiceCalendar struct {
	services []database.Service
	next     time.Time
	until    time.Time

	date time.Time
	due  []database.Service
}

// NewServiceCalendar creates a calendar over [start, start+months).
func NewServiceCalendar(start time.Time, months int, services []database.Service) (*ServiceCalendar, error) {
	if !ValidMonths(months) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMonths, months)
	}

	sorted := make([]database.Service, len(services))
	copy(sorted, services)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TimeOfDay != sorted[j].TimeOfDay {
			return sorted[i].TimeOfDay < sorted[j].TimeOfDay
		}
		return sorted[i].ID < sorted[j].ID
	})

	from, until := Window(start, months)
	return &ServiceCalendar{
		services: sorted,
		next:     from,
		until:    until,
	}, nil
}

// Next advances to the next date with at least one due service.
// It returns false once the window is exhausted.
func (c *ServiceCalendar) Next() bool {
	for c.next.Before(c.until) {
		day := c.next
		c.next = c.next.AddDate(0, 0, 1)

		var due []database.Service
		for _, s := range c.services {
			if OccursOn(s, day) {
				due = append(due, s)
			}
		}
		if len(due) > 0 {
			c.date = day
			c.due = due
			return true
		}
	}

	c.due = nil
	return false
}

// Date returns the current date.
func (c *ServiceCalendar) Date() time.Time {
	return c.date
}

// Services returns the services due on the current date.
func (c *ServiceCalendar) Services() []database.Service {
	return c.due
}

// Until returns the exclusive end of the window.
func (c *ServiceCalendar) Until() time.Time {
	return c.until
}

package database

import (
	"time"
)

// Track is one of the two independent rotation universes.
type Track string

const (
	TrackOfficial Track = "official"
	TrackYouth    Track = "youth"
)

// IsValid checks if a track is valid.
func (t Track) IsValid() bool {
	return t == TrackOfficial || t == TrackYouth
}

// Category is an organist's qualification tier.
type Category string

const (
	CategoryOfficial   Category = "official"
	CategoryYouth      Category = "youth"
	CategoryApprentice Category = "apprentice"
)

// ValidCategories returns all valid organist categories.
func ValidCategories() []Category {
	return []Category{
		CategoryOfficial,
		CategoryYouth,
		CategoryApprentice,
	}
}

// IsValid checks if a category is valid.
func (c Category) IsValid() bool {
	for _, valid := range ValidCategories() {
		if c == valid {
			return true
		}
	}
	return false
}

// Role is the slot an organist fills on a service.
type Role string

const (
	RoleWarmup Role = "warmup"
	RoleMain   Role = "main"
)

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// Church holds the per-church rotation settings.
type Church struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	SameOrganistBothRoles bool          `json:"same_organist_both_roles"`
	CombineWeekday        *time.Weekday `json:"combine_weekday"` // nullable
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// CombinesOn reports whether both roles go to one organist on weekday.
func (c *Church) CombinesOn(weekday time.Weekday) bool {
	if c.SameOrganistBothRoles {
		return true
	}
	return c.CombineWeekday != nil && *c.CombineWeekday == weekday
}

// Organist is a person who can be scheduled.
type Organist struct {
	ID       string   `json:"id"`
	ChurchID string   `json:"church_id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Active   bool     `json:"active"`
}

// Cycle is an ordered, named group of organists on one track.
type Cycle struct {
	ID        string `json:"id"`
	ChurchID  string `json:"church_id"`
	Track     Track  `json:"track"`
	Number    *int   `json:"number"` // official track only
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `json:"active"`
}

// CycleMember is an organist at a position inside a cycle.
type CycleMember struct {
	CycleID  string   `json:"cycle_id"`
	Position int      `json:"position"`
	Organist Organist `json:"organist"`
}

// Service is a recurring weekly slot that needs organists.
type Service struct {
	ID             string       `json:"id"`
	ChurchID       string       `json:"church_id"`
	Name           string       `json:"name"`
	Weekday        time.Weekday `json:"weekday"`
	TimeOfDay      string       `json:"time_of_day"` // HH:MM
	Track          Track        `json:"track"`
	CycleID        *string      `json:"cycle_id"`        // nullable
	MonthlyOrdinal *int         `json:"monthly_ordinal"` // nullable; 1..5 or -1 for last
	Active         bool         `json:"active"`
}

// Assignment is one generated (service, date, role) row.
type Assignment struct {
	ID            string    `json:"id"`
	ChurchID      string    `json:"church_id"`
	ServiceID     string    `json:"service_id"`
	Date          string    `json:"date"` // YYYY-MM-DD
	Role          Role      `json:"role"`
	OrganistID    string    `json:"organist_id"`
	OriginCycleID string    `json:"origin_cycle_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// -----------------------------------------------------------------
// Composite types for API responses
// -----------------------------------------------------------------

// AssignmentView is an assignment joined with display data. This is the
// persisted view handed back to callers after generation.
type AssignmentView struct {
	Assignment
	OrganistName     string       `json:"organist_name"`
	OrganistCategory Category     `json:"organist_category"`
	ServiceName      string       `json:"service_name"`
	ServiceTime      string       `json:"service_time"`
	Weekday          time.Weekday `json:"weekday"`
	Track            Track        `json:"track"`
	CycleName        string       `json:"cycle_name"`
}

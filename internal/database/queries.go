package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Helper Functions
// =============================================================================

// parseTimestamp parses a timestamp from SQLite TEXT format.
// Tries multiple formats and returns nil if parsing fails.
func parseTimestamp(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}

	return nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// =============================================================================
// Church Queries
// =============================================================================

// GetChurch retrieves a church by id.
// Returns ErrNotFound if the church doesn't exist.
func (db *DB) GetChurch(ctx context.Context, id string) (*Church, error) {
	query := `
		SELECT id, name, same_organist_both_roles, combine_weekday, created_at, updated_at
		FROM churches
		WHERE id = ?
	`

	var c Church
	var combine sql.NullInt64
	var createdAt, updatedAt sql.NullString

	err := db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.SameOrganistBothRoles,
		&combine,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query church: %w", err)
	}

	if combine.Valid {
		wd := time.Weekday(combine.Int64)
		c.CombineWeekday = &wd
	}
	if t := parseTimestamp(createdAt); t != nil {
		c.CreatedAt = *t
	}
	if t := parseTimestamp(updatedAt); t != nil {
		c.UpdatedAt = *t
	}

	return &c, nil
}

// UpsertChurch inserts or updates a church by id.
func (tx *Tx) UpsertChurch(ctx context.Context, c *Church) error {
	var combine sql.NullInt64
	if c.CombineWeekday != nil {
		combine = sql.NullInt64{Int64: int64(*c.CombineWeekday), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO churches (id, name, same_organist_both_roles, combine_weekday)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			same_organist_both_roles = excluded.same_organist_both_roles,
			combine_weekday = excluded.combine_weekday,
			updated_at = datetime('now')
	`, c.ID, c.Name, c.SameOrganistBothRoles, combine)
	if err != nil {
		return fmt.Errorf("upsert church: %w", mapConstraintErr(err))
	}
	return nil
}

// =============================================================================
// Organist Queries
// =============================================================================

// UpsertOrganist inserts or updates an organist by id.
func (tx *Tx) UpsertOrganist(ctx context.Context, o *Organist) error {
	if !o.Category.IsValid() {
		return fmt.Errorf("upsert organist %q: invalid category %q", o.Name, o.Category)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO organists (id, church_id, name, category, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			active = excluded.active,
			updated_at = datetime('now')
	`, o.ID, o.ChurchID, o.Name, o.Category, o.Active)
	if err != nil {
		return fmt.Errorf("upsert organist: %w", mapConstraintErr(err))
	}
	return nil
}

// =============================================================================
// Cycle Queries
// =============================================================================

// ListActiveCycles returns a church's active cycles on one track.
// Official cycles are ordered by number, youth cycles by sort_order.
func (db *DB) ListActiveCycles(ctx context.Context, churchID string, track Track) ([]Cycle, error) {
	order := "sort_order ASC, name ASC"
	if track == TrackOfficial {
		order = "number ASC, sort_order ASC"
	}

	query := `
		SELECT id, church_id, track, number, name, sort_order, active
		FROM cycles
		WHERE church_id = ? AND track = ? AND active = 1
		ORDER BY ` + order

	rows, err := db.QueryContext(ctx, query, churchID, track)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		var c Cycle
		var number sql.NullInt64
		if err := rows.Scan(&c.ID, &c.ChurchID, &c.Track, &number, &c.Name, &c.SortOrder, &c.Active); err != nil {
			return nil, fmt.Errorf("scan cycle row: %w", err)
		}
		c.Number = intPtr(number)
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycle rows: %w", err)
	}

	return cycles, nil
}

// ListCycleMembers returns the active organists of a cycle ordered by position.
func (db *DB) ListCycleMembers(ctx context.Context, cycleID string) ([]CycleMember, error) {
	query := `
		SELECT m.cycle_id, m.position,
			o.id, o.church_id, o.name, o.category, o.active
		FROM cycle_members m
		JOIN organists o ON o.id = m.organist_id
		WHERE m.cycle_id = ? AND o.active = 1
		ORDER BY m.position ASC
	`

	rows, err := db.QueryContext(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("query cycle members: %w", err)
	}
	defer rows.Close()

	var members []CycleMember
	for rows.Next() {
		var m CycleMember
		err := rows.Scan(
			&m.CycleID,
			&m.Position,
			&m.Organist.ID,
			&m.Organist.ChurchID,
			&m.Organist.Name,
			&m.Organist.Category,
			&m.Organist.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cycle member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycle member rows: %w", err)
	}

	return members, nil
}

// UpsertCycle inserts or updates a cycle by id.
func (tx *Tx) UpsertCycle(ctx context.Context, c *Cycle) error {
	if !c.Track.IsValid() {
		return fmt.Errorf("upsert cycle %q: invalid track %q", c.Name, c.Track)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO cycles (id, church_id, track, number, name, sort_order, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			track = excluded.track,
			number = excluded.number,
			name = excluded.name,
			sort_order = excluded.sort_order,
			active = excluded.active,
			updated_at = datetime('now')
	`, c.ID, c.ChurchID, c.Track, nullInt(c.Number), c.Name, c.SortOrder, c.Active)
	if err != nil {
		return fmt.Errorf("upsert cycle: %w", mapConstraintErr(err))
	}
	return nil
}

// ReplaceCycleMembers rewrites a cycle's membership. Positions are assigned
// densely from 1 in the order of organistIDs.
func (tx *Tx) ReplaceCycleMembers(ctx context.Context, cycleID string, organistIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cycle_members WHERE cycle_id = ?`, cycleID); err != nil {
		return fmt.Errorf("clear cycle members: %w", err)
	}

	for i, organistID := range organistIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cycle_members (cycle_id, organist_id, position)
			VALUES (?, ?, ?)
		`, cycleID, organistID, i+1)
		if err != nil {
			return fmt.Errorf("insert cycle member %d: %w", i+1, mapConstraintErr(err))
		}
	}
	return nil
}

// =============================================================================
// Service Queries
// =============================================================================

// ListActiveServices returns a church's active services ordered by weekday
// and time of day.
func (db *DB) ListActiveServices(ctx context.Context, churchID string) ([]Service, error) {
	query := `
		SELECT id, church_id, name, weekday, time_of_day, track, cycle_id, monthly_ordinal, active
		FROM services
		WHERE church_id = ? AND active = 1
		ORDER BY weekday ASC, time_of_day ASC, id ASC
	`

	rows, err := db.QueryContext(ctx, query, churchID)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var s Service
		var weekday int
		var cycleID sql.NullString
		var ordinal sql.NullInt64
		err := rows.Scan(
			&s.ID,
			&s.ChurchID,
			&s.Name,
			&weekday,
			&s.TimeOfDay,
			&s.Track,
			&cycleID,
			&ordinal,
			&s.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("scan service row: %w", err)
		}
		s.Weekday = time.Weekday(weekday)
		s.CycleID = stringPtr(cycleID)
		s.MonthlyOrdinal = intPtr(ordinal)
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service rows: %w", err)
	}

	return services, nil
}

// UpsertService inserts or updates a service by id.
func (tx *Tx) UpsertService(ctx context.Context, s *Service) error {
	if !s.Track.IsValid() {
		return fmt.Errorf("upsert service %q: invalid track %q", s.Name, s.Track)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO services (id, church_id, name, weekday, time_of_day, track, cycle_id, monthly_ordinal, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			weekday = excluded.weekday,
			time_of_day = excluded.time_of_day,
			track = excluded.track,
			cycle_id = excluded.cycle_id,
			monthly_ordinal = excluded.monthly_ordinal,
			active = excluded.active,
			updated_at = datetime('now')
	`, s.ID, s.ChurchID, s.Name, int(s.Weekday), s.TimeOfDay, s.Track,
		nullString(s.CycleID), nullInt(s.MonthlyOrdinal), s.Active)
	if err != nil {
		return fmt.Errorf("upsert service: %w", mapConstraintErr(err))
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Assignment Queries
// =============================================================================

// SaveAssignments upserts generated assignments and returns the persisted,
// enriched view of the church's assignments in [from, to].
//
// This is IDEMPOTENT: rows are keyed by (service_id, date, role), so an
// existing row is replaced in place and a missing row is inserted. All rows
// are written in a single transaction.
func (db *DB) SaveAssignments(ctx context.Context, churchID string, rows []Assignment, from, to string) ([]AssignmentView, error) {
	err := db.WithTx(ctx, func(tx *Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO assignments (
				id, church_id, service_id, date, role, organist_id, origin_cycle_id, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
			ON CONFLICT(service_id, date, role) DO UPDATE SET
				organist_id = excluded.organist_id,
				origin_cycle_id = excluded.origin_cycle_id,
				updated_at = datetime('now')
		`)
		if err != nil {
			return fmt.Errorf("prepare assignment upsert: %w", err)
		}
		defer stmt.Close()

		for _, a := range rows {
			id := a.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := stmt.ExecContext(ctx,
				id,
				churchID,
				a.ServiceID,
				a.Date,
				a.Role,
				a.OrganistID,
				a.OriginCycleID,
			)
			if err != nil {
				return fmt.Errorf("upsert assignment %s/%s/%s: %w", a.ServiceID, a.Date, a.Role, mapConstraintErr(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	db.logger.Debug("assignments saved",
		slog.String("church_id", churchID),
		slog.Int("rows", len(rows)),
		slog.String("from", from),
		slog.String("to", to),
	)

	return db.ListAssignmentViews(ctx, churchID, from, to)
}

// ListAssignmentViews retrieves a church's assignments for a date range
// (inclusive) joined with organist, service and cycle display data.
// Rows are ordered by date, service time, service and role (warmup first).
func (db *DB) ListAssignmentViews(ctx context.Context, churchID, from, to string) ([]AssignmentView, error) {
	query := `
		SELECT
			a.id, a.church_id, a.service_id, a.date, a.role,
			a.organist_id, a.origin_cycle_id, a.created_at, a.updated_at,
			o.name, o.category,
			s.name, s.time_of_day, s.weekday, s.track,
			c.name
		FROM assignments a
		JOIN organists o ON o.id = a.organist_id
		JOIN services s ON s.id = a.service_id
		JOIN cycles c ON c.id = a.origin_cycle_id
		WHERE a.church_id = ? AND a.date >= ? AND a.date <= ?
		ORDER BY a.date ASC, s.time_of_day ASC, s.id ASC,
			CASE a.role WHEN 'warmup' THEN 0 ELSE 1 END
	`

	rows, err := db.QueryContext(ctx, query, churchID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query assignments by range: %w", err)
	}
	defer rows.Close()

	views := []AssignmentView{}
	for rows.Next() {
		var v AssignmentView
		var weekday int
		var createdAt, updatedAt sql.NullString

		err := rows.Scan(
			&v.ID,
			&v.ChurchID,
			&v.ServiceID,
			&v.Date,
			&v.Role,
			&v.OrganistID,
			&v.OriginCycleID,
			&createdAt,
			&updatedAt,
			&v.OrganistName,
			&v.OrganistCategory,
			&v.ServiceName,
			&v.ServiceTime,
			&weekday,
			&v.Track,
			&v.CycleName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan assignment row: %w", err)
		}

		v.Weekday = time.Weekday(weekday)
		if t := parseTimestamp(createdAt); t != nil {
			v.CreatedAt = *t
		}
		if t := parseTimestamp(updatedAt); t != nil {
			v.UpdatedAt = *t
		}

		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignment rows: %w", err)
	}

	return views, nil
}

// DeleteAssignmentsFrom removes a church's assignments dated on or after
// from. Used before regenerating a window. Returns the number removed.
func (db *DB) DeleteAssignmentsFrom(ctx context.Context, churchID, from string) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM assignments WHERE church_id = ? AND date >= ?`,
		churchID, from,
	)
	if err != nil {
		return 0, fmt.Errorf("delete assignments: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return n, nil
}

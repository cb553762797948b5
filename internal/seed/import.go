package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zapponejosh/organ-rotation/internal/database"
	"github.com/zapponejosh/organ-rotation/internal/rotation"
)

// namespace roots every derived id.
var namespace = uuid.MustParse("3b8f5a64-5d1e-4f0e-9a0c-6f2b1e7c4d21")

// Stats counts what an import wrote.
type Stats struct {
	ChurchID  string `json:"church_id"`
	Organists int    `json:"organists"`
	Cycles    int    `json:"cycles"`
	Members   int    `json:"members"`
	Services  int    `json:"services"`
}

// ChurchID returns the id the church is stored under: the explicit id, or
// one derived from the church name.
func (f *File) ChurchID() string {
	if f.Church.ID != "" {
		return f.Church.ID
	}
	return uuid.NewSHA1(namespace, []byte("church:"+naturalKey(f.Church.Name))).String()
}

// entityID derives a stable id for an entity of kind inside a church.
func entityID(churchID, kind, key string) string {
	church := uuid.NewSHA1(namespace, []byte(churchID))
	return uuid.NewSHA1(church, []byte(kind+":"+naturalKey(key))).String()
}

func naturalKey(name string) string {
	return rotation.NormalizeName(name)
}

// clockTime zero-pads a validated time of day to HH:MM, the form services
// are ordered by. Unparseable input is returned unchanged for the store to
// reject.
func clockTime(s string) string {
	t, err := time.Parse(timeLayout, strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return t.Format(timeLayout)
}

// Import upserts the whole file inside tx. Cycle membership is replaced, so
// the order in the file becomes the rotation order.
func Import(ctx context.Context, tx *database.Tx, f *File, logger *slog.Logger) (Stats, error) {
	churchID := f.ChurchID()
	stats := Stats{ChurchID: churchID}

	// =========================================================================
	// Church
	// =========================================================================
	church := &database.Church{
		ID:                    churchID,
		Name:                  f.Church.Name,
		SameOrganistBothRoles: f.Church.SameOrganistBothRoles,
	}
	if f.Church.CombineWeekday != "" {
		d, _ := ParseWeekday(f.Church.CombineWeekday)
		church.CombineWeekday = &d
	}
	if err := tx.UpsertChurch(ctx, church); err != nil {
		return stats, fmt.Errorf("upsert church %s: %w", churchID, err)
	}

	// =========================================================================
	// Organists
	// =========================================================================
	organistIDs := make(map[string]string, len(f.Organists))
	for _, o := range f.Organists {
		org := &database.Organist{
			ID:       entityID(churchID, "organist", o.Name),
			ChurchID: churchID,
			Name:     o.Name,
			Category: database.Category(o.Category),
			Active:   isActive(o.Active),
		}
		if err := tx.UpsertOrganist(ctx, org); err != nil {
			return stats, fmt.Errorf("upsert organist %q: %w", o.Name, err)
		}
		organistIDs[naturalKey(o.Name)] = org.ID
		stats.Organists++
	}

	// =========================================================================
	// Cycles and membership
	// =========================================================================
	cycleIDs := make(map[string]string, len(f.Cycles))
	for _, c := range f.Cycles {
		cycle := &database.Cycle{
			ID:        entityID(churchID, "cycle", c.Name),
			ChurchID:  churchID,
			Track:     database.Track(c.Track),
			Name:      c.Name,
			SortOrder: c.SortOrder,
			Active:    isActive(c.Active),
		}
		if cycle.Track == database.TrackOfficial {
			cycle.Number = c.Number
		}
		if err := tx.UpsertCycle(ctx, cycle); err != nil {
			return stats, fmt.Errorf("upsert cycle %q: %w", c.Name, err)
		}

		members := make([]string, 0, len(c.Members))
		for _, m := range c.Members {
			members = append(members, organistIDs[naturalKey(m)])
		}
		if err := tx.ReplaceCycleMembers(ctx, cycle.ID, members); err != nil {
			return stats, fmt.Errorf("replace members of cycle %q: %w", c.Name, err)
		}

		cycleIDs[naturalKey(c.Name)] = cycle.ID
		stats.Cycles++
		stats.Members += len(members)

		logger.Debug("cycle imported",
			slog.String("cycle", c.Name),
			slog.String("track", c.Track),
			slog.Int("members", len(members)),
		)
	}

	// =========================================================================
	// Services
	// =========================================================================
	for _, s := range f.Services {
		weekday, _ := ParseWeekday(s.Weekday)
		clock := clockTime(s.Time)
		svc := &database.Service{
			ID:             entityID(churchID, "service", s.Name+"|"+s.Weekday+"|"+clock),
			ChurchID:       churchID,
			Name:           s.Name,
			Weekday:        weekday,
			TimeOfDay:      clock,
			Track:          database.Track(s.Track),
			MonthlyOrdinal: s.MonthlyOrdinal,
			Active:         isActive(s.Active),
		}
		if s.Cycle != "" {
			id := cycleIDs[naturalKey(s.Cycle)]
			svc.CycleID = &id
		}
		if err := tx.UpsertService(ctx, svc); err != nil {
			return stats, fmt.Errorf("upsert service %q: %w", s.Name, err)
		}
		stats.Services++
	}

	logger.Info("seed imported",
		slog.String("church_id", churchID),
		slog.Int("organists", stats.Organists),
		slog.Int("cycles", stats.Cycles),
		slog.Int("members", stats.Members),
		slog.Int("services", stats.Services),
	)

	return stats, nil
}

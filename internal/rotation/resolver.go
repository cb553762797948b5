package rotation

import (
	"log/slog"
	"time"

	"github.com/zapponejosh/organ-rotation/internal/calendar"
	"github.com/zapponejosh/organ-rotation/internal/database"
)

// Reasons recorded on Unfilled entries.
const (
	ReasonLookaheadExhausted = "lookahead_exhausted"
	ReasonNoCycles           = "no_cycles_on_track"
)

// Unfilled records a service-date role that the rotation could not staff.
// No assignment row is written for it.
type Unfilled struct {
	ServiceID   string        `json:"service_id"`
	ServiceName string        `json:"service_name"`
	Date        string        `json:"date"`
	Role        database.Role `json:"role"`
	Reason      string        `json:"reason"`
}

// assignmentResolver turns due services into role assignments by pulling
// organists from the two track cursors.
//
// The official cursor advances at most once per calendar date: every
// official service on a date shares that day's candidate. Only the main
// role lookahead may move the cursor further.
type assignmentResolver struct {
	church    *database.Church
	official  *Cursor
	youth     *Cursor
	lookahead int
	logger    *slog.Logger
}

// resolveDate assigns every service due on date, in the given order.
func (r *assignmentResolver) resolveDate(date time.Time, services []database.Service) ([]database.Assignment, []Unfilled) {
	var (
		rows     []database.Assignment
		unfilled []Unfilled
		day      = calendar.FormatDate(date)

		// dailyOfficialCandidate
		candidate *Pick
	)

	for _, svc := range services {
		switch svc.Track {
		case database.TrackYouth:
			pick, ok := r.youth.Next()
			if !ok {
				unfilled = append(unfilled, r.gap(svc, day, database.RoleMain, ReasonNoCycles))
				continue
			}
			rows = append(rows, assignment(svc, day, database.RoleMain, pick))

		case database.TrackOfficial:
			if candidate == nil {
				pick, ok := r.official.Next()
				if !ok {
					unfilled = append(unfilled,
						r.gap(svc, day, database.RoleWarmup, ReasonNoCycles),
						r.gap(svc, day, database.RoleMain, ReasonNoCycles),
					)
					continue
				}
				candidate = &pick
			}

			eligible := candidate.Organist.Category == database.CategoryOfficial
			if r.church.CombinesOn(date.Weekday()) && eligible {
				rows = append(rows,
					assignment(svc, day, database.RoleWarmup, *candidate),
					assignment(svc, day, database.RoleMain, *candidate),
				)
				continue
			}

			// Any category may warm up.
			rows = append(rows, assignment(svc, day, database.RoleWarmup, *candidate))
			if eligible {
				rows = append(rows, assignment(svc, day, database.RoleMain, *candidate))
				continue
			}

			main, ok := r.findOfficial()
			if !ok {
				r.logger.Warn("no official organist within lookahead, main role left unassigned",
					slog.String("date", day),
					slog.String("service_id", svc.ID),
					slog.String("service", svc.Name),
					slog.String("candidate", candidate.Organist.Name),
					slog.Int("lookahead", r.lookahead),
				)
				unfilled = append(unfilled, r.gap(svc, day, database.RoleMain, ReasonLookaheadExhausted))
				continue
			}
			rows = append(rows, assignment(svc, day, database.RoleMain, main))

		default:
			r.logger.Warn("service has unknown track, skipping",
				slog.String("service_id", svc.ID),
				slog.String("track", string(svc.Track)),
			)
		}
	}

	return rows, unfilled
}

// findOfficial pulls up to r.lookahead members looking for an official
// organist. On success the cursor stays past every skipped member; on
// failure it is restored.
func (r *assignmentResolver) findOfficial() (Pick, bool) {
	saved := r.official.Save()
	for i := 0; i < r.lookahead; i++ {
		pick, ok := r.official.Next()
		if !ok {
			break
		}
		if pick.Organist.Category == database.CategoryOfficial {
			return pick, true
		}
	}
	r.official.Restore(saved)
	return Pick{}, false
}

func (r *assignmentResolver) gap(svc database.Service, day string, role database.Role, reason string) Unfilled {
	return Unfilled{
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Date:        day,
		Role:        role,
		Reason:      reason,
	}
}

func assignment(svc database.Service, day string, role database.Role, pick Pick) database.Assignment {
	return database.Assignment{
		ChurchID:      svc.ChurchID,
		ServiceID:     svc.ID,
		Date:          day,
		Role:          role,
		OrganistID:    pick.Organist.ID,
		OriginCycleID: pick.CycleID,
	}
}

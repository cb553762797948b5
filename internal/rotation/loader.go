package rotation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zapponejosh/organ-rotation/internal/database"
)

// LoadedCycle is an active cycle with its active members in position order.
type LoadedCycle struct {
	database.Cycle
	Members []database.Organist `json:"members"`
}

// CycleSet is a church's rotation configuration split by track.
type CycleSet struct {
	Official []LoadedCycle `json:"official"`
	Youth    []LoadedCycle `json:"youth"`
}

// Directory indexes every loaded organist of both tracks by id.
func (s *CycleSet) Directory() map[string]database.Organist {
	dir := make(map[string]database.Organist)
	for _, cycles := range [][]LoadedCycle{s.Official, s.Youth} {
		for _, c := range cycles {
			for _, o := range c.Members {
				dir[o.ID] = o
			}
		}
	}
	return dir
}

// CycleLoader reads the rotation configuration of a church.
type CycleLoader interface {
	ListActiveCycles(ctx context.Context, churchID string, track database.Track) ([]database.Cycle, error)
	ListCycleMembers(ctx context.Context, cycleID string) ([]database.CycleMember, error)
}

// LoadCycles loads the active official cycles (by number) and youth cycles
// (by sort order) of a church with their active members. Cycles left with
// no members are dropped. If neither track has a cycle left, it returns a
// *ConfigurationError.
func LoadCycles(ctx context.Context, store CycleLoader, churchID string, logger *slog.Logger) (*CycleSet, error) {
	official, err := loadTrack(ctx, store, churchID, database.TrackOfficial, logger)
	if err != nil {
		return nil, err
	}
	youth, err := loadTrack(ctx, store, churchID, database.TrackYouth, logger)
	if err != nil {
		return nil, err
	}

	if len(official) == 0 && len(youth) == 0 {
		return nil, &ConfigurationError{ChurchID: churchID, Reason: "no active cycles with active members"}
	}

	set := &CycleSet{Official: official, Youth: youth}
	warnSharedMembers(set, churchID, logger)

	logger.Debug("cycles loaded",
		slog.String("church_id", churchID),
		slog.Int("official_cycles", len(official)),
		slog.Int("youth_cycles", len(youth)),
	)

	return set, nil
}

func loadTrack(ctx context.Context, store CycleLoader, churchID string, track database.Track, logger *slog.Logger) ([]LoadedCycle, error) {
	cycles, err := store.ListActiveCycles(ctx, churchID, track)
	if err != nil {
		return nil, fmt.Errorf("load %s cycles: %w", track, err)
	}

	var loaded []LoadedCycle
	for _, c := range cycles {
		members, err := store.ListCycleMembers(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("load members of cycle %s: %w", c.ID, err)
		}

		organists := make([]database.Organist, 0, len(members))
		for _, m := range members {
			if !m.Organist.Active {
				continue
			}
			organists = append(organists, m.Organist)
		}

		if len(organists) == 0 {
			logger.Debug("dropping cycle without active members",
				slog.String("cycle_id", c.ID),
				slog.String("cycle", c.Name),
				slog.String("track", string(track)),
			)
			continue
		}

		loaded = append(loaded, LoadedCycle{Cycle: c, Members: organists})
	}

	return loaded, nil
}

// warnSharedMembers logs organists that sit on both tracks. The cursors stay
// independent either way; the warning points at a configuration mistake.
func warnSharedMembers(set *CycleSet, churchID string, logger *slog.Logger) {
	official := make(map[string]bool)
	for _, c := range set.Official {
		for _, o := range c.Members {
			official[o.ID] = true
		}
	}
	for _, c := range set.Youth {
		for _, o := range c.Members {
			if official[o.ID] {
				logger.Warn("organist is a member of both tracks",
					slog.String("church_id", churchID),
					slog.String("organist_id", o.ID),
					slog.String("organist", o.Name),
				)
			}
		}
	}
}

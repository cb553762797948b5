package rotation

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/zapponejosh/organ-rotation/internal/database"
)

// StartRefs are the optional caller hints for where the official rotation
// should resume.
type StartRefs struct {
	// Cycle is a cycle id, an official cycle number or a cycle name.
	Cycle string
	// Organist is an organist id or a (partial) organist name.
	Organist string
}

// ResolveStart computes the official cursor's starting position.
//
// A resolved cycle reference locks the search for the organist to that
// cycle. Without a lock the organist is looked up in the first cycle and
// then in every cycle in order. References that do not resolve never fail:
// the result degrades to the start of the locked cycle, or to (0, 0), and
// the degradation is logged.
func ResolveStart(cycles []LoadedCycle, directory map[string]database.Organist, refs StartRefs, logger *slog.Logger) Position {
	var pos Position
	if len(cycles) == 0 {
		return pos
	}

	locked := false
	if ref := strings.TrimSpace(refs.Cycle); ref != "" {
		if idx, ok := findCycle(cycles, ref); ok {
			pos.Cycle = idx
			locked = true
			logger.Debug("start cycle resolved",
				slog.String("ref", ref),
				slog.String("cycle", cycles[idx].Name),
			)
		} else {
			logger.Warn("start cycle not found, using first cycle",
				slog.String("ref", ref),
				slog.Any("closest", closestNames(ref, cycleNames(cycles), 3)),
			)
		}
	}

	ref := strings.TrimSpace(refs.Organist)
	if ref == "" {
		return pos
	}

	name := ref
	if id, err := uuid.Parse(ref); err == nil {
		o, ok := directory[id.String()]
		if !ok {
			logger.Warn("start organist id not among active members",
				slog.String("ref", ref),
				slog.Int("cycle_index", pos.Cycle),
			)
			return pos
		}
		// Match by name so a duplicate organist record with another id
		// still lands on the member listed in the cycle.
		name = o.Name
	}

	matcher := newNameMatcher(name)
	if item, ok := matcher.index(memberNames(cycles[pos.Cycle])); ok {
		pos.Item = item
		return pos
	}

	if locked {
		logger.Warn("start organist not found in locked cycle, starting at its first member",
			slog.String("ref", ref),
			slog.String("cycle", cycles[pos.Cycle].Name),
			slog.Any("closest", closestNames(name, memberNames(cycles[pos.Cycle]), 3)),
		)
		return pos
	}

	for i, c := range cycles {
		if item, ok := matcher.index(memberNames(c)); ok {
			logger.Info("start organist found in another cycle, switching cycle",
				slog.String("ref", ref),
				slog.String("from_cycle", cycles[pos.Cycle].Name),
				slog.String("to_cycle", c.Name),
			)
			return Position{Cycle: i, Item: item}
		}
	}

	var all []string
	for _, c := range cycles {
		all = append(all, memberNames(c)...)
	}
	logger.Warn("start organist not found, using first member",
		slog.String("ref", ref),
		slog.Any("closest", closestNames(name, all, 3)),
	)
	return pos
}

// findCycle resolves a cycle reference: a UUID matches the id, an integer
// matches the official number, anything else matches the name.
func findCycle(cycles []LoadedCycle, ref string) (int, bool) {
	if _, err := uuid.Parse(ref); err == nil {
		for i, c := range cycles {
			if strings.EqualFold(c.ID, ref) {
				return i, true
			}
		}
		return 0, false
	}

	if n, err := strconv.Atoi(ref); err == nil {
		for i, c := range cycles {
			if c.Number != nil && *c.Number == n {
				return i, true
			}
		}
		return 0, false
	}

	return newNameMatcher(ref).index(cycleNames(cycles))
}

func cycleNames(cycles []LoadedCycle) []string {
	names := make([]string, len(cycles))
	for i, c := range cycles {
		names[i] = c.Name
	}
	return names
}

func memberNames(c LoadedCycle) []string {
	names := make([]string, len(c.Members))
	for i, o := range c.Members {
		names[i] = o.Name
	}
	return names
}

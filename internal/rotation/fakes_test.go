package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/zapponejosh/organ-rotation/internal/database"
)

// fakeStore is an in-memory Store. Saved rows are keyed like the real
// assignments table: (service_id, date, role).
type fakeStore struct {
	mu        sync.Mutex
	church    database.Church
	organists map[string]database.Organist
	cycles    []database.Cycle
	members   map[string][]string
	services  []database.Service
	saved     map[string]database.Assignment
	saves     int
}

func newFakeStore(church database.Church) *fakeStore {
	return &fakeStore{
		church:    church,
		organists: make(map[string]database.Organist),
		members:   make(map[string][]string),
		saved:     make(map[string]database.Assignment),
	}
}

func (s *fakeStore) addOrganist(id, name string, cat database.Category) {
	s.organists[id] = database.Organist{ID: id, ChurchID: s.church.ID, Name: name, Category: cat, Active: true}
}

func (s *fakeStore) addOfficialCycle(id string, number int, name string, memberIDs ...string) {
	n := number
	s.cycles = append(s.cycles, database.Cycle{ID: id, ChurchID: s.church.ID, Track: database.TrackOfficial, Number: &n, Name: name, Active: true})
	s.members[id] = memberIDs
}

func (s *fakeStore) addYouthCycle(id string, sortOrder int, name string, memberIDs ...string) {
	s.cycles = append(s.cycles, database.Cycle{ID: id, ChurchID: s.church.ID, Track: database.TrackYouth, SortOrder: sortOrder, Name: name, Active: true})
	s.members[id] = memberIDs
}

func (s *fakeStore) addService(id, name string, weekday time.Weekday, at string, track database.Track) {
	s.services = append(s.services, database.Service{ID: id, ChurchID: s.church.ID, Name: name, Weekday: weekday, TimeOfDay: at, Track: track, Active: true})
}

func (s *fakeStore) GetChurch(_ context.Context, churchID string) (*database.Church, error) {
	if churchID != s.church.ID {
		return nil, fmt.Errorf("church %s: %w", churchID, database.ErrNotFound)
	}
	c := s.church
	return &c, nil
}

func (s *fakeStore) ListActiveCycles(_ context.Context, churchID string, track database.Track) ([]database.Cycle, error) {
	var out []database.Cycle
	for _, c := range s.cycles {
		if c.ChurchID == churchID && c.Track == track && c.Active {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if track == database.TrackOfficial {
			return *out[i].Number < *out[j].Number
		}
		return out[i].SortOrder < out[j].SortOrder
	})
	return out, nil
}

func (s *fakeStore) ListCycleMembers(_ context.Context, cycleID string) ([]database.CycleMember, error) {
	var out []database.CycleMember
	for i, id := range s.members[cycleID] {
		o := s.organists[id]
		if !o.Active {
			continue
		}
		out = append(out, database.CycleMember{CycleID: cycleID, Position: i + 1, Organist: o})
	}
	return out, nil
}

func (s *fakeStore) ListActiveServices(_ context.Context, churchID string) ([]database.Service, error) {
	var out []database.Service
	for _, svc := range s.services {
		if svc.ChurchID == churchID && svc.Active {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (s *fakeStore) SaveAssignments(_ context.Context, churchID string, rows []database.Assignment, from, to string) ([]database.AssignmentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	for _, a := range rows {
		s.saved[a.ServiceID+"|"+a.Date+"|"+string(a.Role)] = a
	}
	return s.views(churchID, from, to), nil
}

func (s *fakeStore) DeleteAssignmentsFrom(_ context.Context, churchID, from string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, a := range s.saved {
		if a.ChurchID == churchID && a.Date >= from {
			delete(s.saved, k)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) views(churchID, from, to string) []database.AssignmentView {
	services := make(map[string]database.Service)
	for _, svc := range s.services {
		services[svc.ID] = svc
	}

	out := []database.AssignmentView{}
	for _, a := range s.saved {
		if a.ChurchID != churchID || a.Date < from || a.Date > to {
			continue
		}
		o := s.organists[a.OrganistID]
		svc := services[a.ServiceID]
		out = append(out, database.AssignmentView{
			Assignment:       a,
			OrganistName:     o.Name,
			OrganistCategory: o.Category,
			ServiceName:      svc.Name,
			ServiceTime:      svc.TimeOfDay,
			Weekday:          svc.Weekday,
			Track:            svc.Track,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.ServiceTime != b.ServiceTime {
			return a.ServiceTime < b.ServiceTime
		}
		if a.ServiceID != b.ServiceID {
			return a.ServiceID < b.ServiceID
		}
		return a.Role == database.RoleWarmup && b.Role == database.RoleMain
	})
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func date(s string) time.Time {
	t, err := time.Parse(database.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// byRole filters views to one service and role, in date order.
func byRole(views []database.AssignmentView, serviceID string, role database.Role) []database.AssignmentView {
	var out []database.AssignmentView
	for _, v := range views {
		if v.ServiceID == serviceID && v.Role == role {
			out = append(out, v)
		}
	}
	return out
}

func names(views []database.AssignmentView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.OrganistName
	}
	return out
}

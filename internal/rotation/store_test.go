package rotation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapponejosh/organ-rotation/internal/database"
)

// sqliteStore opens a migrated in-memory database seeded with one church:
// official cycles C1=[Ana(official), Bia(apprentice)] and C2=[Caio(official)],
// youth cycle [Yuri], a Sunday official service and a Saturday youth service.
func sqliteStore(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(database.Config{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxLifetime: time.Hour}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Migrate(ctx)
	require.NoError(t, err)

	one, two := 1, 2
	err = db.WithTx(ctx, func(tx *database.Tx) error {
		if err := tx.UpsertChurch(ctx, &database.Church{ID: "church", Name: "Central"}); err != nil {
			return err
		}
		for _, o := range []database.Organist{
			{ID: "ana", ChurchID: "church", Name: "Ana", Category: database.CategoryOfficial, Active: true},
			{ID: "bia", ChurchID: "church", Name: "Bia", Category: database.CategoryApprentice, Active: true},
			{ID: "caio", ChurchID: "church", Name: "Caio", Category: database.CategoryOfficial, Active: true},
			{ID: "yuri", ChurchID: "church", Name: "Yuri", Category: database.CategoryYouth, Active: true},
		} {
			if err := tx.UpsertOrganist(ctx, &o); err != nil {
				return err
			}
		}
		cycles := []struct {
			c       database.Cycle
			members []string
		}{
			{database.Cycle{ID: "c1", ChurchID: "church", Track: database.TrackOfficial, Number: &one, Name: "C1", Active: true}, []string{"ana", "bia"}},
			{database.Cycle{ID: "c2", ChurchID: "church", Track: database.TrackOfficial, Number: &two, Name: "C2", Active: true}, []string{"caio"}},
			{database.Cycle{ID: "y1", ChurchID: "church", Track: database.TrackYouth, Name: "Youth", Active: true}, []string{"yuri"}},
		}
		for _, c := range cycles {
			if err := tx.UpsertCycle(ctx, &c.c); err != nil {
				return err
			}
			if err := tx.ReplaceCycleMembers(ctx, c.c.ID, c.members); err != nil {
				return err
			}
		}
		if err := tx.UpsertService(ctx, &database.Service{ID: "sun", ChurchID: "church", Name: "Sunday Worship", Weekday: time.Sunday, TimeOfDay: "19:00", Track: database.TrackOfficial, Active: true}); err != nil {
			return err
		}
		return tx.UpsertService(ctx, &database.Service{ID: "sat", ChurchID: "church", Name: "Youth Meeting", Weekday: time.Saturday, TimeOfDay: "16:00", Track: database.TrackYouth, Active: true})
	})
	require.NoError(t, err)

	return db
}

type rowKey struct {
	service, date string
	role          database.Role
}

type rowValue struct {
	id, organist, cycle string
}

func snapshot(views []database.AssignmentView) map[rowKey]rowValue {
	out := make(map[rowKey]rowValue, len(views))
	for _, v := range views {
		out[rowKey{v.ServiceID, v.Date, v.Role}] = rowValue{v.ID, v.OrganistID, v.OriginCycleID}
	}
	return out
}

func TestGenerate_SQLite(t *testing.T) {
	db := sqliteStore(t)
	g := NewGenerator(db, discardLogger())
	ctx := context.Background()
	req := Request{ChurchID: "church", Months: 3, Start: date(firstSunday)}

	first, err := g.Generate(ctx, req)
	require.NoError(t, err)

	mains := byRole(first.Assignments, "sun", database.RoleMain)
	warmups := byRole(first.Assignments, "sun", database.RoleWarmup)
	require.GreaterOrEqual(t, len(mains), 3)
	assert.Equal(t, []string{"Ana", "Caio", "Ana"}, names(mains[:3]))
	assert.Equal(t, []string{"Ana", "Bia", "Ana"}, names(warmups[:3]))
	assert.Equal(t, "c1", mains[0].OriginCycleID)
	assert.Equal(t, "C1", mains[0].CycleName)

	for _, v := range byRole(first.Assignments, "sat", database.RoleMain) {
		assert.Equal(t, "Yuri", v.OrganistName)
		assert.Equal(t, database.TrackYouth, v.Track)
	}

	second, err := g.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, snapshot(first.Assignments), snapshot(second.Assignments))

	stored, err := db.ListAssignmentViews(ctx, "church", first.From, first.To)
	require.NoError(t, err)
	assert.Len(t, stored, len(first.Assignments))
}

func TestRegenerate_SQLite(t *testing.T) {
	db := sqliteStore(t)
	g := NewGenerator(db, discardLogger())
	ctx := context.Background()

	_, err := g.Generate(ctx, Request{ChurchID: "church", Months: 3, Start: date(firstSunday)})
	require.NoError(t, err)

	res, err := g.Regenerate(ctx, Request{
		ChurchID: "church",
		Months:   3,
		Start:    date("2025-02-01"),
		Refs:     StartRefs{Cycle: "2"},
	})
	require.NoError(t, err)
	assert.Positive(t, res.Pruned)

	mains := byRole(res.Assignments, "sun", database.RoleMain)
	require.NotEmpty(t, mains)
	assert.Equal(t, "2025-02-02", mains[0].Date)
	assert.Equal(t, "Caio", mains[0].OrganistName)

	january, err := db.ListAssignmentViews(ctx, "church", firstSunday, "2025-01-31")
	require.NoError(t, err)
	assert.NotEmpty(t, january)
}

package database

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

// testDB creates a temporary in-memory database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()

	cfg := Config{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}

	db, err := Open(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	ctx := context.Background()
	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// seedTestData inserts one church with an official cycle of two organists,
// a youth cycle of one organist and a Sunday service on each track.
func seedTestData(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	one := 1
	sunday := time.Sunday
	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertChurch(ctx, &Church{ID: "church-1", Name: "Central", CombineWeekday: &sunday}); err != nil {
			return err
		}
		organists := []Organist{
			{ID: "org-a", ChurchID: "church-1", Name: "Ana", Category: CategoryOfficial, Active: true},
			{ID: "org-b", ChurchID: "church-1", Name: "Bruno", Category: CategoryApprentice, Active: true},
			{ID: "org-c", ChurchID: "church-1", Name: "Carla", Category: CategoryOfficial, Active: false},
			{ID: "org-y", ChurchID: "church-1", Name: "Yara", Category: CategoryYouth, Active: true},
		}
		for i := range organists {
			if err := tx.UpsertOrganist(ctx, &organists[i]); err != nil {
				return err
			}
		}
		if err := tx.UpsertCycle(ctx, &Cycle{ID: "cyc-1", ChurchID: "church-1", Track: TrackOfficial, Number: &one, Name: "Cycle 1", Active: true}); err != nil {
			return err
		}
		if err := tx.ReplaceCycleMembers(ctx, "cyc-1", []string{"org-a", "org-c", "org-b"}); err != nil {
			return err
		}
		if err := tx.UpsertCycle(ctx, &Cycle{ID: "cyc-y", ChurchID: "church-1", Track: TrackYouth, Name: "Youth", Active: true}); err != nil {
			return err
		}
		if err := tx.ReplaceCycleMembers(ctx, "cyc-y", []string{"org-y"}); err != nil {
			return err
		}
		if err := tx.UpsertService(ctx, &Service{ID: "svc-main", ChurchID: "church-1", Name: "Sunday Worship", Weekday: time.Sunday, TimeOfDay: "19:00", Track: TrackOfficial, Active: true}); err != nil {
			return err
		}
		return tx.UpsertService(ctx, &Service{ID: "svc-youth", ChurchID: "church-1", Name: "Youth Meeting", Weekday: time.Sunday, TimeOfDay: "10:00", Track: TrackYouth, Active: true})
	})
	if err != nil {
		t.Fatalf("seed test data: %v", err)
	}
}

// -----------------------------------------------------------------
// DB tests
// -----------------------------------------------------------------

func TestOpen(t *testing.T) {
	db := testDB(t)

	if err := db.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestHealth_PendingMigrations(t *testing.T) {
	db, err := Open(DefaultConfig(":memory:"), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	if err := db.Health(ctx); err == nil {
		t.Error("Health() before Migrate error = nil, want error")
	}

	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.Health(ctx); err != nil {
		t.Errorf("Health() after Migrate error = %v", err)
	}
}

func TestMigrate(t *testing.T) {
	db := testDB(t)

	// Running again should be a no-op
	count, err := db.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Migrate() count = %d, want 0 (already applied)", count)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertChurch(ctx, &Church{ID: "rolled-back", Name: "Gone"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want %v", err, boom)
	}

	if _, err := db.GetChurch(ctx, "rolled-back"); !IsNotFound(err) {
		t.Errorf("GetChurch() after rollback error = %v, want ErrNotFound", err)
	}
}

// -----------------------------------------------------------------
// Configuration tests
// -----------------------------------------------------------------

func TestGetChurch(t *testing.T) {
	db := testDB(t)
	seedTestData(t, db)

	c, err := db.GetChurch(context.Background(), "church-1")
	if err != nil {
		t.Fatalf("GetChurch() error = %v", err)
	}
	if c.Name != "Central" {
		t.Errorf("Name = %q, want %q", c.Name, "Central")
	}
	if c.CombineWeekday == nil || *c.CombineWeekday != time.Sunday {
		t.Errorf("CombineWeekday = %v, want Sunday", c.CombineWeekday)
	}
	if !c.CombinesOn(time.Sunday) || c.CombinesOn(time.Monday) {
		t.Error("CombinesOn() should be true only on Sunday")
	}
}

func TestGetChurch_NotFound(t *testing.T) {
	db := testDB(t)

	_, err := db.GetChurch(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("GetChurch() error = %v, want ErrNotFound", err)
	}
}

func TestListActiveCycles_Ordering(t *testing.T) {
	db := testDB(t)
	seedTestData(t, db)
	ctx := context.Background()

	three, two := 3, 2
	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertCycle(ctx, &Cycle{ID: "cyc-3", ChurchID: "church-1", Track: TrackOfficial, Number: &three, Name: "Cycle 3", Active: true}); err != nil {
			return err
		}
		return tx.UpsertCycle(ctx, &Cycle{ID: "cyc-2", ChurchID: "church-1", Track: TrackOfficial, Number: &two, Name: "Cycle 2", Active: false})
	})
	if err != nil {
		t.Fatalf("add cycles: %v", err)
	}

	cycles, err := db.ListActiveCycles(ctx, "church-1", TrackOfficial)
	if err != nil {
		t.Fatalf("ListActiveCycles() error = %v", err)
	}
	if len(cycles) != 2 {
		t.Fatalf("len(cycles) = %d, want 2 (inactive excluded)", len(cycles))
	}
	if cycles[0].ID != "cyc-1" || cycles[1].ID != "cyc-3" {
		t.Errorf("cycle order = [%s %s], want [cyc-1 cyc-3]", cycles[0].ID, cycles[1].ID)
	}
}

func TestUpsertCycle_DuplicateActiveNumber(t *testing.T) {
	db := testDB(t)
	seedTestData(t, db)
	ctx := context.Background()

	one := 1
	err := db.WithTx(ctx, func(tx *Tx) error {
		return tx.UpsertCycle(ctx, &Cycle{ID: "cyc-dup", ChurchID: "church-1", Track: TrackOfficial, Number: &one, Name: "Again", Active: true})
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("UpsertCycle() error = %v, want ErrDuplicate", err)
	}
}

func TestListCycleMembers_SkipsInactive(t *testing.T) {
	db := testDB(t)
	seedTestData(t, db)

	members, err := db.ListCycleMembers(context.Background(), "cyc-1")
	if err != nil {
		t.Fatalf("ListCycleMembers() error = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len(members) = %d, want 2", len(members))
	}
	if members[0].Organist.Name != "Ana" || members[1].Organist.Name != "Bruno" {
		t.Errorf("members = [%s %s], want [Ana Bruno]", members[0].Organist.Name, members[1].Organist.Name)
	}
	if members[1].Position != 3 {
		t.Errorf("Bruno position = %d, want 3", members[1].Position)
	}
}

func TestListActiveServices(t *testing.T) {
	db := testDB(t)
	seedTestData(t, db)

	services, err := db.ListActiveServices(context.Background(), "church-1")
	if err != nil {
		t.Fatalf("ListActiveServices() error = %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("len(services) = %d, want 2", len(services))
	}
	if services[0].ID != "svc-youth" {
		t.Errorf("first service = %s, want svc-youth (earlier time)", services[0].ID)
	}
	if services[0].CycleID != nil || services[0].MonthlyOrdinal != nil {
		t.Errorf("nullable columns = %v/%v, want nil", services[0].CycleID, services[0].MonthlyOrdinal)
	}
}

func TestUpsertService_RejectsUnpaddedTime(t *testing.T) {
	db := testDB(t)
	seedTestData(t, db)
	ctx := context.Background()

	for _, tod := range []string{"9:00", "19:0", "7pm", ""} {
		err := db.WithTx(ctx, func(tx *Tx) error {
			return tx.UpsertService(ctx, &Service{ID: "svc-bad", ChurchID: "church-1", Name: "Bad", Weekday: time.Monday, TimeOfDay: tod, Track: TrackOfficial, Active: true})
		})
		if err == nil {
			t.Errorf("UpsertService(time_of_day=%q) error = nil, want CHECK violation", tod)
		}
	}
}

// -----------------------------------------------------------------
// Assignment tests
// -----------------------------------------------------------------

func TestSaveAssignments_Upsert(t *testing.T) {
	db := testDB(t)
	seedTestData(t, db)
	ctx := context.Background()

	rows := []Assignment{
		{ServiceID: "svc-main", Date: "2025-03-02", Role: RoleMain, OrganistID: "org-a", OriginCycleID: "cyc-1"},
		{ServiceID: "svc-main", Date: "2025-03-02", Role: RoleWarmup, OrganistID: "org-b", OriginCycleID: "cyc-1"},
		{ServiceID: "svc-youth", Date: "2025-03-02", Role: RoleMain, OrganistID: "org-y", OriginCycleID: "cyc-y"},
	}

	views, err := db.SaveAssignments(ctx, "church-1", rows, "2025-03-01", "2025-03-31")
	if err != nil {
		t.Fatalf("SaveAssignments() error = %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("len(views) = %d, want 3", len(views))
	}

	// youth at 10:00 comes first, then warmup before main
	if views[0].ServiceID != "svc-youth" {
		t.Errorf("views[0].ServiceID = %s, want svc-youth", views[0].ServiceID)
	}
	if views[1].Role != RoleWarmup || views[2].Role != RoleMain {
		t.Errorf("roles = [%s %s], want [warmup main]", views[1].Role, views[2].Role)
	}
	if views[2].OrganistName != "Ana" || views[2].CycleName != "Cycle 1" || views[2].Weekday != time.Sunday {
		t.Errorf("enriched view = %+v", views[2])
	}
	firstID := views[2].ID

	// Overwrite main with a different organist; the natural key keeps one row
	rows[0].OrganistID = "org-b"
	views, err = db.SaveAssignments(ctx, "church-1", rows[:1], "2025-03-01", "2025-03-31")
	if err != nil {
		t.Fatalf("second SaveAssignments() error = %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("len(views) after upsert = %d, want 3", len(views))
	}
	if views[2].OrganistID != "org-b" {
		t.Errorf("main organist = %s, want org-b", views[2].OrganistID)
	}
	if views[2].ID != firstID {
		t.Errorf("row id changed on upsert: %s -> %s", firstID, views[2].ID)
	}
}

func TestListAssignmentViews_Empty(t *testing.T) {
	db := testDB(t)
	seedTestData(t, db)

	views, err := db.ListAssignmentViews(context.Background(), "church-1", "2030-01-01", "2030-12-31")
	if err != nil {
		t.Fatalf("ListAssignmentViews() error = %v", err)
	}
	if views == nil || len(views) != 0 {
		t.Errorf("views = %v, want empty non-nil slice", views)
	}
}

func TestDeleteAssignmentsFrom(t *testing.T) {
	db := testDB(t)
	seedTestData(t, db)
	ctx := context.Background()

	rows := []Assignment{
		{ServiceID: "svc-main", Date: "2025-03-02", Role: RoleMain, OrganistID: "org-a", OriginCycleID: "cyc-1"},
		{ServiceID: "svc-main", Date: "2025-03-09", Role: RoleMain, OrganistID: "org-a", OriginCycleID: "cyc-1"},
		{ServiceID: "svc-main", Date: "2025-03-16", Role: RoleMain, OrganistID: "org-a", OriginCycleID: "cyc-1"},
	}
	if _, err := db.SaveAssignments(ctx, "church-1", rows, "2025-03-01", "2025-03-31"); err != nil {
		t.Fatalf("SaveAssignments() error = %v", err)
	}

	n, err := db.DeleteAssignmentsFrom(ctx, "church-1", "2025-03-09")
	if err != nil {
		t.Fatalf("DeleteAssignmentsFrom() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	views, err := db.ListAssignmentViews(ctx, "church-1", "2025-03-01", "2025-03-31")
	if err != nil {
		t.Fatalf("ListAssignmentViews() error = %v", err)
	}
	if len(views) != 1 || views[0].Date != "2025-03-02" {
		t.Errorf("remaining = %+v, want only 2025-03-02", views)
	}
}

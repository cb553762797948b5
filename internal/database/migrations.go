package database

// migrationsSQL contains all database migrations.
// Migrations are applied in order by version number.
var migrationsSQL = map[int]string{
	1: migrationV1RotationSchema,
	2: migrationV2AssignmentIndexes,
}

// migrationV1RotationSchema creates the configuration tables (churches,
// organists, cycles, memberships, services) and the generated assignments.
//
// Identifiers are UUID strings generated by the application. Dates are
// stored as YYYY-MM-DD text so range queries compare lexically.
const migrationV1RotationSchema = `
-- ============================================================================
-- Table: churches
-- ============================================================================
CREATE TABLE IF NOT EXISTS churches (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,

    -- One organist may play warmup and main on the same service
    same_organist_both_roles INTEGER NOT NULL DEFAULT 0,

    -- Weekday (0=Sunday..6=Saturday) on which roles are always combined
    combine_weekday INTEGER CHECK (combine_weekday BETWEEN 0 AND 6),

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- ============================================================================
-- Table: organists
-- ============================================================================
CREATE TABLE IF NOT EXISTS organists (
    id TEXT PRIMARY KEY,
    church_id TEXT NOT NULL,
    name TEXT NOT NULL,
    category TEXT NOT NULL CHECK (category IN ('official', 'youth', 'apprentice')),
    active INTEGER NOT NULL DEFAULT 1,

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),

    FOREIGN KEY (church_id) REFERENCES churches(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_organists_church
    ON organists(church_id);

-- ============================================================================
-- Table: cycles
-- ============================================================================
-- Ordered groups of organists. Official cycles are ordered by number,
-- youth cycles by sort_order.
-- ============================================================================
CREATE TABLE IF NOT EXISTS cycles (
    id TEXT PRIMARY KEY,
    church_id TEXT NOT NULL,
    track TEXT NOT NULL CHECK (track IN ('official', 'youth')),
    number INTEGER,
    name TEXT NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 1,

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),

    FOREIGN KEY (church_id) REFERENCES churches(id) ON DELETE CASCADE
);

-- At most one active official cycle per (church, number)
CREATE UNIQUE INDEX IF NOT EXISTS idx_cycles_official_number
    ON cycles(church_id, number)
    WHERE track = 'official' AND active = 1;

CREATE INDEX IF NOT EXISTS idx_cycles_church_track
    ON cycles(church_id, track);

-- ============================================================================
-- Table: cycle_members
-- ============================================================================
CREATE TABLE IF NOT EXISTS cycle_members (
    cycle_id TEXT NOT NULL,
    organist_id TEXT NOT NULL,
    position INTEGER NOT NULL,

    FOREIGN KEY (cycle_id) REFERENCES cycles(id) ON DELETE CASCADE,
    FOREIGN KEY (organist_id) REFERENCES organists(id) ON DELETE CASCADE,

    PRIMARY KEY (cycle_id, position),
    UNIQUE (cycle_id, organist_id)
);

-- ============================================================================
-- Table: services
-- ============================================================================
-- Recurring weekly services. monthly_ordinal restricts a service to the
-- nth occurrence of its weekday in a month (1..5), or the last (-1).
-- ============================================================================
CREATE TABLE IF NOT EXISTS services (
    id TEXT PRIMARY KEY,
    church_id TEXT NOT NULL,
    name TEXT NOT NULL,
    weekday INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
    -- Zero-padded HH:MM so services on a date sort by time as text
    time_of_day TEXT NOT NULL CHECK (time_of_day GLOB '[0-2][0-9]:[0-5][0-9]'),
    track TEXT NOT NULL CHECK (track IN ('official', 'youth')),
    cycle_id TEXT,
    monthly_ordinal INTEGER CHECK (monthly_ordinal IS NULL OR monthly_ordinal = -1 OR monthly_ordinal BETWEEN 1 AND 5),
    active INTEGER NOT NULL DEFAULT 1,

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),

    FOREIGN KEY (church_id) REFERENCES churches(id) ON DELETE CASCADE,
    FOREIGN KEY (cycle_id) REFERENCES cycles(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_services_church
    ON services(church_id);

-- ============================================================================
-- Table: assignments
-- ============================================================================
-- One row per (service, date, role). Re-generation overwrites in place.
-- ============================================================================
CREATE TABLE IF NOT EXISTS assignments (
    id TEXT PRIMARY KEY,
    church_id TEXT NOT NULL,
    service_id TEXT NOT NULL,
    date TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('warmup', 'main')),
    organist_id TEXT NOT NULL,
    origin_cycle_id TEXT NOT NULL,

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),

    FOREIGN KEY (church_id) REFERENCES churches(id) ON DELETE CASCADE,
    FOREIGN KEY (service_id) REFERENCES services(id) ON DELETE CASCADE,
    FOREIGN KEY (organist_id) REFERENCES organists(id),
    FOREIGN KEY (origin_cycle_id) REFERENCES cycles(id),

    UNIQUE (service_id, date, role)
);
`

// migrationV2AssignmentIndexes adds the index used by range listing and
// regenerate-from-date pruning.
const migrationV2AssignmentIndexes = `
CREATE INDEX IF NOT EXISTS idx_assignments_church_date
    ON assignments(church_id, date);
`

package sqlite

const (
	// MinSchemaVersion is the oldest schema a snapshot can be migrated from.
	MinSchemaVersion = 10

	// CurrentSchemaVersion is written to PRAGMA user_version of every live database.
	CurrentSchemaVersion = 14
)

// currentSchema creates a fresh database at CurrentSchemaVersion.
// Table and column names are kept from the earliest schema so that
// legacy snapshots can be upgraded in place.
const currentSchema = `
CREATE TABLE IF NOT EXISTS tracks (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    description TEXT,
    icon TEXT,
    "order" INTEGER NOT NULL DEFAULT 0,
    multiple_entries_enabled INTEGER NOT NULL DEFAULT 0,
    is_section_header INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ticks (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    _track_id INTEGER NOT NULL,
    year INTEGER NOT NULL,
    month INTEGER NOT NULL,
    day INTEGER NOT NULL,
    hour INTEGER NOT NULL DEFAULT 0,
    minute INTEGER NOT NULL DEFAULT 0,
    second INTEGER NOT NULL DEFAULT 0,
    has_time_info INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ticks_track ON ticks(_track_id);

CREATE TABLE IF NOT EXISTS "groups" (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    "order" INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS track2groups (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    track_id INTEGER NOT NULL,
    group_id INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_track2groups_pair ON track2groups(track_id, group_id);
`

// migrationsSchema records every schema version applied to a database.
const migrationsSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/maloquacious/tickmate/internal/logger"
)

// migration upgrades a database from version-1 to version.
// Every step checks before it alters so re-running it is harmless.
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sqlx.Tx) error
}

// migrations must stay sorted by version and end at CurrentSchemaVersion.
var migrations = []migration{
	{version: 11, name: "tick time of day", apply: migrateTickTime},
	{version: 12, name: "multiple entries per day", apply: migrateMultipleEntries},
	{version: 13, name: "groups", apply: migrateGroups},
	{version: 14, name: "section headers and unique links", apply: migrateSectionHeaders},
}

// Migrate applies every migration after from in a single transaction and
// stamps the database with CurrentSchemaVersion. On failure nothing is
// changed. A database already at CurrentSchemaVersion is left untouched.
func Migrate(ctx context.Context, db *sqlx.DB, from int, log logger.Logger) error {
	if log == nil {
		log = logger.Discard
	}
	if err := CheckVersion(from); err != nil {
		return err
	}
	if from == CurrentSchemaVersion {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migrationsSchema); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		if m.version <= from {
			continue
		}
		if err := m.apply(ctx, tx); err != nil {
			return fmt.Errorf("migrate to version %d (%s): %w", m.version, m.name, err)
		}
		if err := recordVersion(ctx, tx, m.version); err != nil {
			return err
		}
		log.Info("migration applied", "version", m.version, "name", m.name)
	}

	if err := setUserVersion(ctx, tx, CurrentSchemaVersion); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	log.Info("schema upgraded", "from", from, "to", CurrentSchemaVersion)
	return nil
}

func migrateTickTime(ctx context.Context, tx *sqlx.Tx) error {
	for _, column := range []string{"hour", "minute", "second", "has_time_info"} {
		if err := addColumn(ctx, tx, "ticks", column, "INTEGER NOT NULL DEFAULT 0"); err != nil {
			return err
		}
	}
	return nil
}

func migrateMultipleEntries(ctx context.Context, tx *sqlx.Tx) error {
	return addColumn(ctx, tx, "tracks", "multiple_entries_enabled", "INTEGER NOT NULL DEFAULT 0")
}

func migrateGroups(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `
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
);`)
	return err
}

func migrateSectionHeaders(ctx context.Context, tx *sqlx.Tx) error {
	if err := addColumn(ctx, tx, "tracks", "is_section_header", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}

	// Links written before the unique index may repeat or point at rows
	// that no longer exist.
	cleanup := []string{
		`DELETE FROM track2groups
		 WHERE _id NOT IN (SELECT MIN(_id) FROM track2groups GROUP BY track_id, group_id)`,
		`DELETE FROM track2groups
		 WHERE track_id NOT IN (SELECT _id FROM tracks)
		    OR group_id NOT IN (SELECT _id FROM "groups")`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_track2groups_pair ON track2groups(track_id, group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_track ON ticks(_track_id)`,
	}
	for _, stmt := range cleanup {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// addColumn adds column to table unless it already exists.
func addColumn(ctx context.Context, tx *sqlx.Tx, table, column, decl string) error {
	ok, err := columnExists(ctx, tx, table, column)
	if err != nil || ok {
		return err
	}
	stmt := fmt.Sprintf(`ALTER TABLE %q ADD COLUMN %q %s`, table, column, decl)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

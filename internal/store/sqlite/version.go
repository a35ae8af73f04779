package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/maloquacious/tickmate/internal/store"
)

// versionProbe inspects a database and reports the schema version it
// recognizes. Probes never modify the database.
type versionProbe struct {
	name  string
	match func(ctx context.Context, q sqlx.QueryerContext) (int, bool, error)
}

// versionProbes are evaluated in order; the first match wins.
// Databases written before user_version was maintained are recognized by
// the tables and columns each schema era introduced.
var versionProbes = []versionProbe{
	{name: "user_version", match: probeUserVersion},
	{name: "groups table", match: probeTable("groups", 13)},
	{name: "multiple entries column", match: probeColumn("tracks", "multiple_entries_enabled", 12)},
	{name: "tick time columns", match: probeColumn("ticks", "hour", 11)},
	{name: "tracks table", match: probeTable("tracks", 10)},
}

// DetectVersion returns the schema version of the database behind q.
// The result is not range checked; see CheckVersion.
// It fails with store.ErrUnsupportedVersion when no probe recognizes the schema.
func DetectVersion(ctx context.Context, q sqlx.QueryerContext) (int, error) {
	for _, p := range versionProbes {
		version, ok, err := p.match(ctx, q)
		if err != nil {
			return 0, fmt.Errorf("version probe %q: %w", p.name, err)
		}
		if ok {
			return version, nil
		}
	}
	return 0, fmt.Errorf("%w: no tickmate tables found", store.ErrUnsupportedVersion)
}

// CheckVersion fails with a *store.VersionError if version cannot be
// migrated to CurrentSchemaVersion.
func CheckVersion(version int) error {
	if version < MinSchemaVersion || version > CurrentSchemaVersion {
		return &store.VersionError{Version: version, Min: MinSchemaVersion, Max: CurrentSchemaVersion}
	}
	return nil
}

func probeUserVersion(ctx context.Context, q sqlx.QueryerContext) (int, bool, error) {
	version, err := userVersion(ctx, q)
	if err != nil {
		return 0, false, err
	}
	return version, version > 0, nil
}

func probeTable(table string, version int) func(context.Context, sqlx.QueryerContext) (int, bool, error) {
	return func(ctx context.Context, q sqlx.QueryerContext) (int, bool, error) {
		ok, err := tableExists(ctx, q, table)
		return version, ok, err
	}
}

func probeColumn(table, column string, version int) func(context.Context, sqlx.QueryerContext) (int, bool, error) {
	return func(ctx context.Context, q sqlx.QueryerContext) (int, bool, error) {
		ok, err := columnExists(ctx, q, table, column)
		return version, ok, err
	}
}

func tableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

// columnExists is false for a missing table.
func columnExists(ctx context.Context, q sqlx.QueryerContext, table, column string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column)
	if err != nil {
		return false, fmt.Errorf("check column %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

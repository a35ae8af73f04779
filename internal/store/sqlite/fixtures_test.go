package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// legacyTrack describes one track row of a legacy snapshot.
type legacyTrack struct {
	name     string
	enabled  bool
	order    int
	multiple bool
	ticks    int
}

type legacyGroup struct {
	name  string
	order int
}

// legacySnapshot is a database written by an older release.
type legacySnapshot struct {
	version     int // schema era the tables are created for
	userVersion int // 0 for releases that did not stamp PRAGMA user_version
	tracks      []legacyTrack
	groups      []legacyGroup
	links       [][2]int64 // track id, group id
}

// smileyV10 has eight tracks, six of them enabled, and no groups.
var smileyV10 = legacySnapshot{
	version: 10,
	tracks: []legacyTrack{
		{name: "Smile", enabled: true, order: 0, ticks: 28},
		{name: "Run", enabled: true, order: 1, ticks: 2},
		{name: "Read", enabled: true, order: 2, ticks: 13},
		{name: "Meditate", enabled: true, order: 3, ticks: 0},
		{name: "Smoke", enabled: false, order: 4, ticks: 5},
		{name: "Call mum", enabled: true, order: 5, ticks: 1},
		{name: "Coffee", enabled: true, order: 6, ticks: 0},
		{name: "Swim", enabled: false, order: 7, ticks: 3},
	},
}

var tickmateV11 = legacySnapshot{
	version: 11,
	tracks: []legacyTrack{
		{name: "Walk", enabled: true, order: 0, ticks: 3},
	},
}

// tickmateV12 has two enabled tracks and no groups.
var tickmateV12 = legacySnapshot{
	version: 12,
	tracks: []legacyTrack{
		{name: "Water", enabled: true, order: 0, multiple: true, ticks: 5},
		{name: "Stretch", enabled: true, order: 1, ticks: 4},
	},
}

// tickmateV13 has three tracks in three groups, a duplicated link and a
// link to a track that no longer exists.
var tickmateV13 = legacySnapshot{
	version:     13,
	userVersion: 13,
	tracks: []legacyTrack{
		{name: "Gym", enabled: true, order: 0, ticks: 6},
		{name: "Sleep early", enabled: true, order: 1, ticks: 4},
		{name: "Water", enabled: true, order: 2, multiple: true, ticks: 5},
	},
	groups: []legacyGroup{
		{name: "Arbeit", order: 0},
		{name: "Wochenende", order: 1},
		{name: "Gesundheit", order: 2},
	},
	links: [][2]int64{
		{1, 3}, {1, 3},
		{2, 1}, {2, 2}, {2, 3},
		{3, 2},
		{9, 1},
	},
}

func legacySchema(version int) string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE tracks (_id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL,
		enabled INTEGER DEFAULT 1, description TEXT, icon TEXT, "order" INTEGER`)
	if version >= 12 {
		b.WriteString(`, multiple_entries_enabled INTEGER DEFAULT 0`)
	}
	b.WriteString(");\n")

	b.WriteString(`CREATE TABLE ticks (_id INTEGER PRIMARY KEY AUTOINCREMENT, _track_id INTEGER NOT NULL,
		year INTEGER NOT NULL, month INTEGER NOT NULL, day INTEGER NOT NULL`)
	if version >= 11 {
		b.WriteString(`, hour INTEGER DEFAULT 0, minute INTEGER DEFAULT 0, second INTEGER DEFAULT 0, has_time_info INTEGER DEFAULT 0`)
	}
	b.WriteString(");\n")

	if version >= 13 {
		b.WriteString(`CREATE TABLE "groups" (_id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, description TEXT, "order" INTEGER);
CREATE TABLE track2groups (_id INTEGER PRIMARY KEY AUTOINCREMENT, track_id INTEGER NOT NULL, group_id INTEGER NOT NULL);
`)
	}
	return b.String()
}

// writeLegacySnapshot creates the database file at path.
func writeLegacySnapshot(t *testing.T, path string, snap legacySnapshot) {
	t.Helper()
	writeRawDatabase(t, path, legacySchema(snap.version), func(db *sqlx.DB) {
		ctx := context.Background()
		for i, tr := range snap.tracks {
			if snap.version >= 12 {
				_, err := db.ExecContext(ctx,
					`INSERT INTO tracks (name, enabled, description, icon, "order", multiple_entries_enabled) VALUES (?, ?, ?, ?, ?, ?)`,
					tr.name, tr.enabled, tr.name+" every day", "glyphicons_002_dog", tr.order, tr.multiple)
				require.NoError(t, err)
			} else {
				_, err := db.ExecContext(ctx,
					`INSERT INTO tracks (name, enabled, description, icon, "order") VALUES (?, ?, ?, ?, ?)`,
					tr.name, tr.enabled, tr.name+" every day", "glyphicons_002_dog", tr.order)
				require.NoError(t, err)
			}
			for n := 0; n < tr.ticks; n++ {
				_, err := db.ExecContext(ctx,
					`INSERT INTO ticks (_track_id, year, month, day) VALUES (?, ?, ?, ?)`,
					i+1, 2015, 1+n/28, 1+n%28)
				require.NoError(t, err)
			}
		}
		for _, g := range snap.groups {
			_, err := db.ExecContext(ctx, `INSERT INTO "groups" (name, "order") VALUES (?, ?)`, g.name, g.order)
			require.NoError(t, err)
		}
		for _, l := range snap.links {
			_, err := db.ExecContext(ctx, `INSERT INTO track2groups (track_id, group_id) VALUES (?, ?)`, l[0], l[1])
			require.NoError(t, err)
		}
		if snap.userVersion > 0 {
			_, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", snap.userVersion))
			require.NoError(t, err)
		}
	})
}

// writeRawDatabase creates a database at path from ddl and lets fill add rows.
func writeRawDatabase(t *testing.T, path, ddl string, fill func(db *sqlx.DB)) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	db, err := sqlx.Open(driverName, path)
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA journal_mode=DELETE")
	require.NoError(t, err)
	if ddl != "" {
		_, err = db.Exec(ddl)
		require.NoError(t, err)
	}
	if fill != nil {
		fill(db)
	}
}

// stageLegacySnapshot writes snap to a scratch file and stages it into the
// external directory of m under name.
func stageLegacySnapshot(t *testing.T, m *SnapshotManager, name string, snap legacySnapshot) {
	t.Helper()
	scratch := filepath.Join(t.TempDir(), "asset.db")
	writeLegacySnapshot(t, scratch, snap)

	f, err := os.Open(scratch)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, m.StageExternal(name, f))
}

// newTestStore returns a closed store and its snapshot manager rooted in a
// fresh temporary directory.
func newTestStore(t *testing.T) (*SQLiteStore, *SnapshotManager) {
	t.Helper()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "databases", "tickmate.db"), nil)
	t.Cleanup(func() { s.Close() })
	return s, NewSnapshotManager(s, filepath.Join(dir, "external"))
}

// inSession runs fn between Open and Close.
func inSession(t *testing.T, s *SQLiteStore, fn func(ctx context.Context)) {
	t.Helper()
	err := s.Session(context.Background(), func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
	require.NoError(t, err)
}

// openSnapshotForTest opens path without the live pragmas or migrations.
func openSnapshotForTest(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open(driverName, path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

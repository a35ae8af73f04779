package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maloquacious/tickmate/internal/store"
)

func TestDBCreateAndVerify(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "databases", "tickmate.db")

	out, err := runCLI(t, dir, "db", "verify")
	assert.Error(t, err)
	assert.Contains(t, out, "state:    missing")

	out = mustRun(t, dir, "db", "create")
	assert.Equal(t, "database ready: "+dbPath+" (schema 14)\n", out)

	mustRun(t, dir, "track", "add", "Water")
	out = mustRun(t, dir, "db", "verify")
	assert.Equal(t,
		"database: "+dbPath+"\n"+
			"state:    ready\n"+
			"schema:   14\n"+
			"tracks:   1\n"+
			"groups:   0\n",
		out)
}

func TestDBUpgrade(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "db", "upgrade")
	assert.ErrorIs(t, err, store.ErrNotFound)

	mustRun(t, dir, "db", "create")
	out := mustRun(t, dir, "db", "upgrade")
	assert.Equal(t, "already at schema 14\n", out)
}

func TestDBExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")

	mustRun(t, dir, "track", "add", "Water")
	out := mustRun(t, dir, "db", "export", "monday.db")
	assert.Equal(t, "exported "+filepath.Join(backups, "monday.db")+"\n", out)

	mustRun(t, dir, "track", "add", "Read")
	assert.Contains(t, mustRun(t, dir, "track", "list"), "Read")

	out = mustRun(t, dir, "db", "import", "monday.db")
	assert.Equal(t, "imported "+filepath.Join(backups, "monday.db")+"\n", out)

	list := mustRun(t, dir, "track", "list")
	assert.Contains(t, list, "Water")
	assert.NotContains(t, list, "Read")
}

func TestDBImportMissing(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "db", "import", "nothing.db")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDBExportInvalidName(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "db", "create")
	_, err := runCLI(t, dir, "db", "export", "../up.db")
	assert.ErrorIs(t, err, store.ErrInvalidName)
}

func TestDBStageAndList(t *testing.T) {
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")

	assert.Equal(t, "no snapshots in "+backups+"\n", mustRun(t, dir, "db", "list"))

	mustRun(t, dir, "track", "add", "Water")
	mustRun(t, dir, "db", "export", "a.db")

	src := filepath.Join(dir, "databases", "tickmate.db")
	out := mustRun(t, dir, "db", "stage", src, "--name", "b.db")
	assert.Equal(t, "staged "+filepath.Join(backups, "b.db")+"\n", out)

	out = mustRun(t, dir, "db", "stage", src)
	assert.Equal(t, "staged "+filepath.Join(backups, "tickmate.db")+"\n", out)

	require.NoError(t, os.WriteFile(filepath.Join(backups, ".hidden.tmp"), []byte("x"), 0o644))

	out = mustRun(t, dir, "db", "list")
	lines := splitLines(out)
	require.Len(t, lines, 3)
	assert.Regexp(t, `^a\.db\s+[\d.]+ kB\s+`, lines[0])
	assert.Regexp(t, `^b\.db\s+`, lines[1])
	assert.Regexp(t, `^tickmate\.db\s+`, lines[2])
}

func TestDBStageMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "db", "stage", filepath.Join(dir, "nope.db"))
	assert.ErrorIs(t, err, store.ErrIOFailure)
}

package sqlite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/maloquacious/tickmate/internal/logger"
	"github.com/maloquacious/tickmate/internal/store"
)

// sqliteHeader starts every SQLite 3 database file.
var sqliteHeader = []byte("SQLite format 3\x00")

// snapshotPragmas keep a staged snapshot in a single file.
var snapshotPragmas = []string{
	"PRAGMA journal_mode=DELETE",
	"PRAGMA busy_timeout=5000",
}

// SnapshotManager implements store.Snapshots. It copies whole database
// files between the live location of a SQLiteStore and an external
// directory of named snapshots. Files are always written to a temporary
// name and renamed into place, so a failed copy never damages either side.
type SnapshotManager struct {
	store       *SQLiteStore
	externalDir string
	log         logger.Logger
}

// NewSnapshotManager returns a manager for s using externalDir as the
// snapshot directory. The directory is created on first write.
func NewSnapshotManager(s *SQLiteStore, externalDir string) *SnapshotManager {
	return &SnapshotManager{
		store:       s,
		externalDir: externalDir,
		log:         s.log,
	}
}

// ExternalDatabasePath returns where the snapshot called name lives.
// It performs no I/O and no validation.
func (m *SnapshotManager) ExternalDatabasePath(name string) string {
	return filepath.Join(m.externalDir, name)
}

// ExternalDatabaseNames lists the snapshots in the external directory in
// lexical order. A missing directory holds no snapshots.
func (m *SnapshotManager) ExternalDatabaseNames() ([]string, error) {
	entries, err := os.ReadDir(m.externalDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: list snapshots: %w", store.ErrIOFailure, err)
	}

	names := []string{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if store.ValidateSnapshotName(entry.Name()) != nil {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// ExportDatabase copies the live database byte for byte to the snapshot
// called name, replacing any existing snapshot of that name. A WAL left
// behind by an unclean shutdown is merged into the live file first.
func (m *SnapshotManager) ExportDatabase(ctx context.Context, name string) error {
	if err := m.checkClosed(name); err != nil {
		return err
	}

	live := m.store.Path()
	exists, err := store.CheckExists(live)
	if err != nil {
		return fmt.Errorf("export %s: %w: %w", name, store.ErrIOFailure, err)
	}
	if !exists {
		return fmt.Errorf("export %s: live database: %w", name, store.ErrNotFound)
	}
	if err := checkpointWAL(ctx, live, m.log); err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}

	err = m.install(m.ExternalDatabasePath(name), func(tmp string) error {
		return copyFile(live, tmp)
	})
	if err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}

	m.log.Info("database exported", "name", name, "path", m.ExternalDatabasePath(name))
	return nil
}

// StageExternal writes r to the snapshot called name so that it can be
// imported later. Bundled legacy databases enter the system this way.
func (m *SnapshotManager) StageExternal(name string, r io.Reader) error {
	if err := store.ValidateSnapshotName(name); err != nil {
		return err
	}

	err := m.install(m.ExternalDatabasePath(name), func(tmp string) error {
		return writeFile(tmp, r)
	})
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}

	m.log.Debug("snapshot staged", "name", name)
	return nil
}

// ImportDatabase replaces the live database with the snapshot called name.
// The snapshot is copied next to the live file, checked, migrated to
// CurrentSchemaVersion and only then renamed over the live file. Any
// failure leaves the previous live database untouched.
func (m *SnapshotManager) ImportDatabase(ctx context.Context, name string) error {
	if err := m.checkClosed(name); err != nil {
		return err
	}

	src := m.ExternalDatabasePath(name)
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("import %s: %w", name, store.ErrNotFound)
		}
		return fmt.Errorf("import %s: %w: %w", name, store.ErrIOFailure, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("import %s: not a regular file: %w", name, store.ErrNotFound)
	}

	live := m.store.Path()
	if err := os.MkdirAll(filepath.Dir(live), 0755); err != nil {
		return fmt.Errorf("import %s: %w: %w", name, store.ErrStorageUnavailable, err)
	}

	var from int
	err = m.install(live, func(staged string) error {
		if err := copyFile(src, staged); err != nil {
			return err
		}
		from, err = upgradeSnapshot(ctx, staged, m.log)
		if err != nil {
			return err
		}
		// Journals of the old live file must not be replayed into the new one.
		return removeFiles(store.SidecarPaths(live))
	})
	if err != nil {
		return fmt.Errorf("import %s: %w", name, err)
	}

	m.log.Info("database imported", "name", name, "from_version", from, "to_version", CurrentSchemaVersion)
	return nil
}

func (m *SnapshotManager) checkClosed(name string) error {
	if err := store.ValidateSnapshotName(name); err != nil {
		return err
	}
	if m.store.IsOpen() {
		return fmt.Errorf("%s: %w", name, store.ErrDatabaseOpen)
	}
	return nil
}

// install fills a temporary file next to dst and renames it over dst.
// The temporary file and its journals are removed if anything fails.
func (m *SnapshotManager) install(dst string, fill func(tmp string) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("%w: %w", store.ErrIOFailure, err)
	}

	tmp := filepath.Join(filepath.Dir(dst), fmt.Sprintf(".%s.%s.tmp", filepath.Base(dst), uuid.NewString()))
	defer func() {
		if err != nil {
			_ = removeFiles(append(store.SidecarPaths(tmp), tmp))
		}
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("%w: %w", store.ErrIOFailure, err)
	}
	return nil
}

// checkpointWAL merges a WAL file left next to a closed database into the
// main file, so that a plain file copy holds every committed transaction.
func checkpointWAL(ctx context.Context, path string, log logger.Logger) error {
	if _, err := os.Stat(path + "-wal"); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %w", store.ErrIOFailure, err)
	}

	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return fmt.Errorf("%w: open for checkpoint: %w", store.ErrStorageUnavailable, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	var busy, frames, checkpointed int
	err = db.QueryRowxContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		return fmt.Errorf("%w: checkpoint: %w", store.ErrStorageUnavailable, err)
	}
	if busy != 0 {
		return fmt.Errorf("%w: checkpoint blocked by another connection", store.ErrStorageUnavailable)
	}

	log.Info("pending WAL merged before export", "path", path, "frames", checkpointed)
	return nil
}

// upgradeSnapshot verifies the database at path and migrates it to
// CurrentSchemaVersion. It returns the version the snapshot had.
func upgradeSnapshot(ctx context.Context, path string, log logger.Logger) (int, error) {
	if err := checkHeader(path); err != nil {
		return 0, err
	}

	db, err := openSnapshot(ctx, path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	version, err := DetectVersion(ctx, db)
	if err != nil {
		return 0, err
	}
	log.Debug("snapshot version detected", "version", version)

	if err := Migrate(ctx, db, version, log); err != nil {
		return version, err
	}
	return version, nil
}

// openSnapshot opens a database file that is not the live database and
// verifies that SQLite can read it.
func openSnapshot(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrCorruptSnapshot, err)
	}
	db.SetMaxOpenConns(1)

	if err := applyPragmas(ctx, db, snapshotPragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", store.ErrCorruptSnapshot, err)
	}

	var result string
	if err := db.GetContext(ctx, &result, "PRAGMA integrity_check(1)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: integrity check: %w", store.ErrCorruptSnapshot, err)
	}
	if result != "ok" {
		db.Close()
		return nil, fmt.Errorf("%w: integrity check: %s", store.ErrCorruptSnapshot, result)
	}
	return db, nil
}

// checkHeader rejects files that do not start with the SQLite magic string.
func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrIOFailure, err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Errorf("%w: short file: %w", store.ErrCorruptSnapshot, err)
	}
	if !bytes.Equal(header, sqliteHeader) {
		return fmt.Errorf("%w: not a SQLite database", store.ErrCorruptSnapshot)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrIOFailure, err)
	}
	defer in.Close()

	return writeFile(dst, in)
}

// writeFile creates path, fills it from r and syncs it to disk.
func writeFile(path string, r io.Reader) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrIOFailure, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("%w: copy: %w", store.ErrIOFailure, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("%w: sync: %w", store.ErrIOFailure, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrIOFailure, err)
	}
	return nil
}

func removeFiles(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: remove %s: %w", store.ErrIOFailure, filepath.Base(p), err)
		}
	}
	return nil
}

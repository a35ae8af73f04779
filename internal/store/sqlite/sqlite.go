package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/maloquacious/tickmate/internal/logger"
	"github.com/maloquacious/tickmate/internal/store"
)

const driverName = "sqlite"

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// livePragmas are applied to every connection of the live database.
var livePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// SQLiteStore implements store.Store and store.DataSource using modernc.org/sqlite.
// The zero connection state is closed; every DataSource call made while
// closed fails with store.ErrNotOpen.
type SQLiteStore struct {
	dbPath string
	log    logger.Logger

	mu sync.Mutex
	db *sqlx.DB
}

// New creates a new SQLiteStore for the live database at dbPath.
// Nothing is opened until Open is called.
func New(dbPath string, log logger.Logger) *SQLiteStore {
	if log == nil {
		log = logger.Discard
	}
	return &SQLiteStore{
		dbPath: dbPath,
		log:    log,
	}
}

// Path returns the location of the live database file.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Open opens the live database with safe defaults, creating the file and
// schema if absent and upgrading an older schema in place.
// Calling Open on an open store is a no-op.
func (s *SQLiteStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
		return fmt.Errorf("%w: create database directory: %w", store.ErrStorageUnavailable, err)
	}

	db, err := sqlx.Open(driverName, s.dbPath)
	if err != nil {
		return fmt.Errorf("%w: open database: %w", store.ErrStorageUnavailable, err)
	}

	// SQLite has a single writer; one connection keeps pragmas in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db, livePragmas); err != nil {
		db.Close()
		return fmt.Errorf("%w: %w", store.ErrStorageUnavailable, err)
	}

	if err := s.prepareSchema(ctx, db); err != nil {
		db.Close()
		return err
	}

	s.db = db
	s.log.Debug("database opened", "path", s.dbPath)
	return nil
}

// Close closes the database connection. Closing a closed store is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	// Merge the WAL back so the database is a single self-contained file
	// for export.
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.log.Warn("wal checkpoint failed", "path", s.dbPath, "error", err)
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	s.log.Debug("database closed", "path", s.dbPath)
	return nil
}

// IsOpen reports whether the store currently holds a connection.
func (s *SQLiteStore) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

// Session opens the store, runs fn and closes the store again, even if fn
// fails. Sessions must not be nested.
func (s *SQLiteStore) Session(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := s.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(ctx)
}

// CheckState returns the current state of the live database file.
// The file is inspected through a separate connection and never modified.
func (s *SQLiteStore) CheckState(ctx context.Context) (store.StoreState, error) {
	exists, err := store.CheckExists(s.dbPath)
	if err != nil {
		return store.StateMissing, err
	}
	if !exists {
		return store.StateMissing, nil
	}

	db, err := sqlx.Open(driverName, s.dbPath)
	if err != nil {
		return store.StateUninitialized, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	empty, err := isEmpty(ctx, db)
	if err != nil {
		return store.StateUninitialized, fmt.Errorf("failed to inspect schema: %w", err)
	}
	if empty {
		return store.StateUninitialized, nil
	}

	version, err := DetectVersion(ctx, db)
	if err != nil {
		if errors.Is(err, store.ErrUnsupportedVersion) {
			return store.StateUninitialized, nil
		}
		return store.StateUninitialized, err
	}
	if version != CurrentSchemaVersion {
		return store.StateVersionMismatch, nil
	}
	return store.StateReady, nil
}

// GetSchemaVersion returns the schema version of the open database.
func (s *SQLiteStore) GetSchemaVersion(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	return userVersion(ctx, db)
}

// conn returns the open connection or store.ErrNotOpen.
func (s *SQLiteStore) conn() (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, store.ErrNotOpen
	}
	return s.db, nil
}

// prepareSchema creates the schema of an empty database or brings an
// existing one up to CurrentSchemaVersion.
func (s *SQLiteStore) prepareSchema(ctx context.Context, db *sqlx.DB) error {
	empty, err := isEmpty(ctx, db)
	if err != nil {
		return fmt.Errorf("%w: inspect schema: %w", store.ErrStorageUnavailable, err)
	}
	if empty {
		if err := initSchema(ctx, db); err != nil {
			return fmt.Errorf("%w: %w", store.ErrStorageUnavailable, err)
		}
		s.log.Info("database created", "path", s.dbPath, "version", CurrentSchemaVersion)
		return nil
	}

	version, err := DetectVersion(ctx, db)
	if err != nil {
		return err
	}
	return Migrate(ctx, db, version, s.log)
}

// initSchema creates the current schema and stamps its version.
func initSchema(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, currentSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, migrationsSchema); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	if err := recordVersion(ctx, tx, CurrentSchemaVersion); err != nil {
		return err
	}
	if err := setUserVersion(ctx, tx, CurrentSchemaVersion); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func applyPragmas(ctx context.Context, db *sqlx.DB, pragmas []string) error {
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func userVersion(ctx context.Context, q sqlx.QueryerContext) (int, error) {
	var version int
	if err := sqlx.GetContext(ctx, q, &version, "PRAGMA user_version"); err != nil {
		return 0, fmt.Errorf("failed to read user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(ctx context.Context, tx *sqlx.Tx, version int) error {
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

func recordVersion(ctx context.Context, tx *sqlx.Tx, version int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO schema_migrations (version, applied_at) VALUES (?, strftime('%s', 'now'))`,
		version)
	if err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", version, err)
	}
	return nil
}

// isEmpty reports whether the database has neither tables nor a version stamp.
func isEmpty(ctx context.Context, q sqlx.QueryerContext) (bool, error) {
	var tables int
	err := sqlx.GetContext(ctx, q, &tables,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return false, err
	}
	if tables > 0 {
		return false, nil
	}
	version, err := userVersion(ctx, q)
	if err != nil {
		return false, err
	}
	return version == 0, nil
}

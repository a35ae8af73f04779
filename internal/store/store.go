package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDBFile is the name of the live database file.
	DefaultDBFile = "tickmate.db"

	// databaseSubdir holds the live database below the data directory.
	databaseSubdir = "databases"
)

// sidecarSuffixes are the files SQLite keeps next to a database.
var sidecarSuffixes = []string{"-wal", "-shm", "-journal"}

// CheckExists reports whether a database file exists at dbPath.
// A directory in its place is an error.
func CheckExists(dbPath string) (bool, error) {
	info, err := os.Stat(dbPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check database: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("database path is a directory, expected file: %s", dbPath)
	}
	return true, nil
}

// GetStorePath returns the directory holding the live database for dataDir.
func GetStorePath(dataDir string) string {
	return filepath.Join(dataDir, databaseSubdir)
}

// GetDBPath returns the full path to the database file.
func GetDBPath(storePath string) string {
	return filepath.Join(storePath, DefaultDBFile)
}

// SidecarPaths returns the journal and WAL files SQLite may keep for dbPath.
func SidecarPaths(dbPath string) []string {
	paths := make([]string, 0, len(sidecarSuffixes))
	for _, suffix := range sidecarSuffixes {
		paths = append(paths, dbPath+suffix)
	}
	return paths
}

// IsSidecar reports whether name is a SQLite journal or WAL file.
func IsSidecar(name string) bool {
	for _, suffix := range sidecarSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ValidateSnapshotName checks that name can be used as a plain file name
// inside the external snapshot directory.
func ValidateSnapshotName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is a hidden file name", ErrInvalidName, name)
	case IsSidecar(name):
		return fmt.Errorf("%w: %q is reserved for SQLite journals", ErrInvalidName, name)
	}
	return nil
}

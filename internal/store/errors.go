package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by stores. Callers classify with errors.Is.
var (
	ErrNotOpen            = errors.New("database not open")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNotFound           = errors.New("not found")
	ErrUnsupportedVersion = errors.New("unsupported schema version")
	ErrCorruptSnapshot    = errors.New("corrupt snapshot")
	ErrIOFailure          = errors.New("i/o failure")
	ErrDatabaseOpen       = errors.New("database is open")
	ErrInvalidName        = errors.New("invalid snapshot name")
)

// VersionError reports a schema version outside the migratable range.
type VersionError struct {
	Version int
	Min     int
	Max     int
}

// Error names the offending version and the bound it crossed.
func (e *VersionError) Error() string {
	if e.Version > e.Max {
		return fmt.Sprintf("schema version %d is newer than supported version %d", e.Version, e.Max)
	}
	return fmt.Sprintf("schema version %d is older than oldest supported version %d", e.Version, e.Min)
}

// Is makes a VersionError match ErrUnsupportedVersion.
func (e *VersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion
}

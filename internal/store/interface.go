package store

import (
	"context"
	"io"

	"github.com/maloquacious/tickmate/internal/models"
)

// StoreState represents the initialization state of the datastore.
type StoreState int

const (
	StateMissing         StoreState = iota // File doesn't exist
	StateUninitialized                     // File exists but no schema
	StateVersionMismatch                   // Schema exists but wrong version
	StateReady                             // Initialized and correct version
)

// String returns the lower-case name of the state.
func (s StoreState) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateUninitialized:
		return "uninitialized"
	case StateVersionMismatch:
		return "version-mismatch"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// Store defines the lifecycle of the live database.
// Open and Close bracket every batch of DataSource calls; sessions must not
// be interleaved from multiple goroutines without external serialization.
type Store interface {
	// Open opens the live database, creating or upgrading its schema
	Open(ctx context.Context) error

	// Close closes the live database; safe to call more than once
	Close() error

	// IsOpen reports whether a connection is held
	IsOpen() bool

	// CheckState inspects the live database file without modifying it
	CheckState(ctx context.Context) (StoreState, error)

	// GetSchemaVersion returns the schema version of the open database
	GetSchemaVersion(ctx context.Context) (int, error)
}

// DataSource is the typed read/write surface over an open live database.
// Every method fails with ErrNotOpen outside an Open/Close bracket.
type DataSource interface {
	StoreTrack(ctx context.Context, track *models.Track) error
	GetTrack(ctx context.Context, id int64) (*models.Track, error)
	GetTracks(ctx context.Context) ([]models.Track, error)
	GetActiveTracks(ctx context.Context) ([]models.Track, error)
	DeleteTrack(ctx context.Context, id int64) error

	StoreTick(ctx context.Context, tick *models.Tick) error
	GetTicks(ctx context.Context, trackID int64) ([]models.Tick, error)
	GetTickCount(ctx context.Context, trackID int64) (int, error)
	DeleteTick(ctx context.Context, id int64) error

	StoreGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	GetGroups(ctx context.Context) ([]models.Group, error)
	DeleteGroup(ctx context.Context, id int64) error

	LinkOneTrackOneGroup(ctx context.Context, trackID, groupID int64) error
	UnlinkOneTrackOneGroup(ctx context.Context, trackID, groupID int64) error
	GetTracksForGroup(ctx context.Context, groupID int64) ([]models.Track, error)
	GetGroupsForTrack(ctx context.Context, trackID int64) ([]models.Group, error)
}

// Snapshots moves whole-database copies between the live location and the
// external snapshot directory. The live database must be closed.
type Snapshots interface {
	ExportDatabase(ctx context.Context, name string) error
	ImportDatabase(ctx context.Context, name string) error
	ExternalDatabaseNames() ([]string, error)
	ExternalDatabasePath(name string) string
	StageExternal(name string, r io.Reader) error
}

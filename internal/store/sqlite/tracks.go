package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/maloquacious/tickmate/internal/models"
	"github.com/maloquacious/tickmate/internal/store"
)

// trackColumns tolerates NULLs left behind by legacy schemas.
const trackColumns = `_id,
	COALESCE(name, '') AS name,
	COALESCE(description, '') AS description,
	COALESCE(enabled, 0) <> 0 AS enabled,
	COALESCE("order", 0) AS "order",
	COALESCE(icon, '') AS icon,
	COALESCE(multiple_entries_enabled, 0) <> 0 AS multiple_entries_enabled,
	COALESCE(is_section_header, 0) <> 0 AS is_section_header`

const trackOrder = `ORDER BY "order" ASC, _id ASC`

// StoreTrack inserts a new track and assigns its ID, or updates the stored
// track with the same ID.
func (s *SQLiteStore) StoreTrack(ctx context.Context, track *models.Track) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	if !track.IsStored() {
		result, err := db.NamedExecContext(ctx,
			`INSERT INTO tracks (name, description, enabled, "order", icon, multiple_entries_enabled, is_section_header)
			 VALUES (:name, :description, :enabled, :order, :icon, :multiple_entries_enabled, :is_section_header)`,
			track)
		if err != nil {
			return fmt.Errorf("insert track: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		track.ID = id
		return nil
	}

	result, err := db.NamedExecContext(ctx,
		`UPDATE tracks SET name = :name, description = :description, enabled = :enabled, "order" = :order,
		 icon = :icon, multiple_entries_enabled = :multiple_entries_enabled, is_section_header = :is_section_header
		 WHERE _id = :_id`,
		track)
	if err != nil {
		return fmt.Errorf("update track: %w", err)
	}
	return requireRow(result, "track", track.ID)
}

// GetTrack returns the track with the given id or store.ErrNotFound.
func (s *SQLiteStore) GetTrack(ctx context.Context, id int64) (*models.Track, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var t models.Track
	err = db.GetContext(ctx, &t, `SELECT `+trackColumns+` FROM tracks WHERE _id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("track %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("get track by id: %w", err)
	}
	return &t, nil
}

// GetTracks returns all tracks sorted by order, ties broken by id.
func (s *SQLiteStore) GetTracks(ctx context.Context) ([]models.Track, error) {
	return s.selectTracks(ctx, `SELECT `+trackColumns+` FROM tracks `+trackOrder)
}

// GetActiveTracks returns the enabled tracks in GetTracks order.
func (s *SQLiteStore) GetActiveTracks(ctx context.Context) ([]models.Track, error) {
	return s.selectTracks(ctx, `SELECT `+trackColumns+` FROM tracks WHERE COALESCE(enabled, 0) <> 0 `+trackOrder)
}

// GetTracksForGroup returns the tracks linked to groupID sorted by the
// tracks' own order.
func (s *SQLiteStore) GetTracksForGroup(ctx context.Context, groupID int64) ([]models.Track, error) {
	return s.selectTracks(ctx,
		`SELECT `+trackColumns+` FROM tracks
		 WHERE _id IN (SELECT track_id FROM track2groups WHERE group_id = ?) `+trackOrder,
		groupID)
}

// DeleteTrack removes a track together with its ticks and group links.
func (s *SQLiteStore) DeleteTrack(ctx context.Context, id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticks WHERE _track_id = ?`, id); err != nil {
		return fmt.Errorf("delete ticks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM track2groups WHERE track_id = ?`, id); err != nil {
		return fmt.Errorf("delete track links: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE _id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	if err := requireRow(result, "track", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) selectTracks(ctx context.Context, query string, args ...any) ([]models.Track, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	tracks := []models.Track{}
	if err := db.SelectContext(ctx, &tracks, query, args...); err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

// requireRow turns an update or delete that touched nothing into store.ErrNotFound.
func requireRow(result sql.Result, kind string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

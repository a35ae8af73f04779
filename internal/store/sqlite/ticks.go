package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/maloquacious/tickmate/internal/models"
)

// tickRow mirrors the ticks table, which stores local calendar fields.
type tickRow struct {
	ID          int64 `db:"_id"`
	TrackID     int64 `db:"_track_id"`
	Year        int   `db:"year"`
	Month       int   `db:"month"`
	Day         int   `db:"day"`
	Hour        int   `db:"hour"`
	Minute      int   `db:"minute"`
	Second      int   `db:"second"`
	HasTimeInfo bool  `db:"has_time_info"`
}

func newTickRow(t *models.Tick) tickRow {
	at := t.Time.In(time.Local)
	row := tickRow{
		ID:          t.ID,
		TrackID:     t.TrackID,
		Year:        at.Year(),
		Month:       int(at.Month()),
		Day:         at.Day(),
		HasTimeInfo: t.HasTimeInfo,
	}
	if t.HasTimeInfo {
		row.Hour, row.Minute, row.Second = at.Clock()
	}
	return row
}

func (r tickRow) model() models.Tick {
	return models.Tick{
		ID:          r.ID,
		TrackID:     r.TrackID,
		Time:        time.Date(r.Year, time.Month(r.Month), r.Day, r.Hour, r.Minute, r.Second, 0, time.Local),
		HasTimeInfo: r.HasTimeInfo,
	}
}

// StoreTick records a new tick and assigns its ID. Ticks are immutable once stored.
func (s *SQLiteStore) StoreTick(ctx context.Context, tick *models.Tick) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := s.GetTrack(ctx, tick.TrackID); err != nil {
		return err
	}

	result, err := db.NamedExecContext(ctx,
		`INSERT INTO ticks (_track_id, year, month, day, hour, minute, second, has_time_info)
		 VALUES (:_track_id, :year, :month, :day, :hour, :minute, :second, :has_time_info)`,
		newTickRow(tick))
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	tick.ID = id
	return nil
}

// GetTicks returns the ticks of trackID in chronological order.
func (s *SQLiteStore) GetTicks(ctx context.Context, trackID int64) ([]models.Tick, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var rows []tickRow
	err = db.SelectContext(ctx, &rows,
		`SELECT _id, _track_id, year, month, day,
		        COALESCE(hour, 0) AS hour, COALESCE(minute, 0) AS minute, COALESCE(second, 0) AS second,
		        COALESCE(has_time_info, 0) <> 0 AS has_time_info
		 FROM ticks WHERE _track_id = ?
		 ORDER BY year, month, day, hour, minute, second, _id`, trackID)
	if err != nil {
		return nil, fmt.Errorf("list ticks: %w", err)
	}

	ticks := make([]models.Tick, 0, len(rows))
	for _, r := range rows {
		ticks = append(ticks, r.model())
	}
	return ticks, nil
}

// GetTickCount returns the number of ticks recorded for trackID.
func (s *SQLiteStore) GetTickCount(ctx context.Context, trackID int64) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM ticks WHERE _track_id = ?`, trackID); err != nil {
		return 0, fmt.Errorf("count ticks: %w", err)
	}
	return n, nil
}

// DeleteTick removes a single tick. A missing tick is store.ErrNotFound.
func (s *SQLiteStore) DeleteTick(ctx context.Context, id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM ticks WHERE _id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tick: %w", err)
	}
	return requireRow(result, "tick", id)
}

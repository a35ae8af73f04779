package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/maloquacious/tickmate/internal/models"
	"github.com/maloquacious/tickmate/internal/store"
)

const groupColumns = `_id,
	COALESCE(name, '') AS name,
	COALESCE(description, '') AS description,
	COALESCE("order", 0) AS "order"`

const groupOrder = `ORDER BY "order" ASC, _id ASC`

// StoreGroup inserts a new group and assigns its ID, or updates the stored
// group with the same ID.
func (s *SQLiteStore) StoreGroup(ctx context.Context, group *models.Group) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	if !group.IsStored() {
		result, err := db.NamedExecContext(ctx,
			`INSERT INTO "groups" (name, description, "order") VALUES (:name, :description, :order)`,
			group)
		if err != nil {
			return fmt.Errorf("insert group: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		group.ID = id
		return nil
	}

	result, err := db.NamedExecContext(ctx,
		`UPDATE "groups" SET name = :name, description = :description, "order" = :order WHERE _id = :_id`,
		group)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return requireRow(result, "group", group.ID)
}

// GetGroup returns the group with id or store.ErrNotFound.
func (s *SQLiteStore) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var g models.Group
	err = db.GetContext(ctx, &g, `SELECT `+groupColumns+` FROM "groups" WHERE _id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("get group by id: %w", err)
	}
	return &g, nil
}

// GetGroups returns all groups sorted by order, ties broken by id.
func (s *SQLiteStore) GetGroups(ctx context.Context) ([]models.Group, error) {
	return s.selectGroups(ctx, `SELECT `+groupColumns+` FROM "groups" `+groupOrder)
}

// GetGroupsForTrack returns the groups trackID belongs to sorted by the
// groups' own order.
func (s *SQLiteStore) GetGroupsForTrack(ctx context.Context, trackID int64) ([]models.Group, error) {
	return s.selectGroups(ctx,
		`SELECT `+groupColumns+` FROM "groups"
		 WHERE _id IN (SELECT group_id FROM track2groups WHERE track_id = ?) `+groupOrder,
		trackID)
}

// DeleteGroup removes a group and its track links. Tracks are kept.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM track2groups WHERE group_id = ?`, id); err != nil {
		return fmt.Errorf("delete group links: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM "groups" WHERE _id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if err := requireRow(result, "group", id); err != nil {
		return err
	}
	return tx.Commit()
}

// LinkOneTrackOneGroup adds trackID to groupID. Linking an already linked
// pair is a no-op; a missing track or group is store.ErrNotFound.
func (s *SQLiteStore) LinkOneTrackOneGroup(ctx context.Context, trackID, groupID int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	for _, ref := range []struct {
		kind  string
		table string
		id    int64
	}{
		{"track", "tracks", trackID},
		{"group", `"groups"`, groupID},
	} {
		var n int
		if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+ref.table+` WHERE _id = ?`, ref.id); err != nil {
			return fmt.Errorf("check %s: %w", ref.kind, err)
		}
		if n == 0 {
			return fmt.Errorf("%s %d: %w", ref.kind, ref.id, store.ErrNotFound)
		}
	}

	_, err = db.ExecContext(ctx,
		`INSERT OR IGNORE INTO track2groups (track_id, group_id) VALUES (?, ?)`, trackID, groupID)
	if err != nil {
		return fmt.Errorf("link track %d to group %d: %w", trackID, groupID, err)
	}
	return nil
}

// UnlinkOneTrackOneGroup removes trackID from groupID. Removing a link that
// does not exist is a no-op.
func (s *SQLiteStore) UnlinkOneTrackOneGroup(ctx context.Context, trackID, groupID int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`DELETE FROM track2groups WHERE track_id = ? AND group_id = ?`, trackID, groupID)
	if err != nil {
		return fmt.Errorf("unlink track %d from group %d: %w", trackID, groupID, err)
	}
	return nil
}

func (s *SQLiteStore) selectGroups(ctx context.Context, query string, args ...any) ([]models.Group, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	groups := []models.Group{}
	if err := db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

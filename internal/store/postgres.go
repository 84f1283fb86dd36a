package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUnknownRow means a write named a group or item that does not exist in
// the community. The whole batch is rolled back.
var ErrUnknownRow = errors.New("unknown row")

const pgForeignKeyViolation = "23503"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) ListNavGroups(ctx context.Context, communityID string) ([]NavGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, community_id, title, position, created_at, updated_at
		FROM nav_groups
		WHERE community_id=$1
		ORDER BY position ASC, created_at ASC, id ASC
	`, communityID)
	if err != nil {
		return nil, fmt.Errorf("list nav groups: %w", err)
	}
	defer rows.Close()

	items := make([]NavGroup, 0)
	for rows.Next() {
		var item NavGroup
		if err := rows.Scan(&item.ID, &item.CommunityID, &item.Title, &item.Position, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan nav group: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nav groups: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListNavItems(ctx context.Context, communityID string) ([]NavItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, community_id, group_id, title, slug, kind, position, created_at, updated_at
		FROM nav_items
		WHERE community_id=$1
		ORDER BY position ASC, created_at ASC, id ASC
	`, communityID)
	if err != nil {
		return nil, fmt.Errorf("list nav items: %w", err)
	}
	defer rows.Close()

	items := make([]NavItem, 0)
	for rows.Next() {
		var item NavItem
		var groupID sql.NullString
		if err := rows.Scan(&item.ID, &item.CommunityID, &groupID, &item.Title, &item.Slug, &item.Kind, &item.Position, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan nav item: %w", err)
		}
		if groupID.Valid {
			item.GroupID = &groupID.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nav items: %w", err)
	}
	return items, nil
}

// InsertNavGroup appends a group after the community's existing groups and
// returns it with its assigned position.
func (s *PostgresStore) InsertNavGroup(ctx context.Context, group NavGroup) (NavGroup, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO nav_groups (id, community_id, title, position)
		VALUES ($1, $2, $3, COALESCE((SELECT MAX(position) + 1 FROM nav_groups WHERE community_id=$2), 0))
		RETURNING position, created_at, updated_at
	`, group.ID, group.CommunityID, group.Title).Scan(&group.Position, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return NavGroup{}, fmt.Errorf("insert nav group: %w", err)
	}
	return group, nil
}

// InsertNavItem appends an item to the end of its group, or of the ungrouped
// bucket when GroupID is nil.
func (s *PostgresStore) InsertNavItem(ctx context.Context, item NavItem) (NavItem, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO nav_items (id, community_id, group_id, title, slug, kind, position)
		SELECT $1, $2, $3, $4, $5, $6,
			COALESCE((SELECT MAX(position) + 1 FROM nav_items WHERE community_id=$2 AND group_id IS NOT DISTINCT FROM $3), 0)
		WHERE $3::text IS NULL OR EXISTS (SELECT 1 FROM nav_groups WHERE id=$3 AND community_id=$2)
		RETURNING position, created_at, updated_at
	`, item.ID, item.CommunityID, item.GroupID, item.Title, item.Slug, item.Kind).Scan(&item.Position, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return NavItem{}, fmt.Errorf("insert nav item: group %s: %w", deref(item.GroupID), ErrUnknownRow)
	}
	if err != nil {
		return NavItem{}, fmt.Errorf("insert nav item: %w", err)
	}
	return item, nil
}

// DeleteNavGroup removes a group. Its items move to the end of the ungrouped
// bucket, keeping their relative order.
func (s *PostgresStore) DeleteNavGroup(ctx context.Context, communityID, groupID string) error {
	return s.withTx(ctx, "delete nav group", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE nav_items
			SET group_id=NULL,
				position=position + COALESCE((SELECT MAX(position) + 1 FROM nav_items WHERE community_id=$2 AND group_id IS NULL), 0),
				updated_at=NOW()
			WHERE community_id=$2 AND group_id=$1
		`, groupID, communityID); err != nil {
			return fmt.Errorf("ungroup items: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM nav_groups WHERE id=$1 AND community_id=$2`, groupID, communityID)
		if err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		return expectOne(res, "group", groupID)
	})
}

// ReorderNavGroups writes every position in one transaction. Rows not named
// in the batch are left alone.
func (s *PostgresStore) ReorderNavGroups(ctx context.Context, communityID string, updates []GroupPositionUpdate) error {
	return s.withTx(ctx, "reorder nav groups", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE nav_groups SET position=$3, updated_at=NOW()
			WHERE id=$1 AND community_id=$2
		`)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for _, u := range updates {
			res, err := stmt.ExecContext(ctx, u.ID, communityID, u.Position)
			if err != nil {
				return fmt.Errorf("update group %s: %w", u.ID, err)
			}
			if err := expectOne(res, "group", u.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReorderNavItems writes group membership and position for every item in the
// batch in one transaction. A non-nil GroupID must name a group of the same
// community.
func (s *PostgresStore) ReorderNavItems(ctx context.Context, communityID string, updates []ItemPositionUpdate) error {
	return s.withTx(ctx, "reorder nav items", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE nav_items SET group_id=$3, position=$4, updated_at=NOW()
			WHERE id=$1 AND community_id=$2
				AND ($3::text IS NULL OR EXISTS (SELECT 1 FROM nav_groups g WHERE g.id=$3 AND g.community_id=$2))
		`)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for _, u := range updates {
			res, err := stmt.ExecContext(ctx, u.ID, communityID, u.GroupID, u.Position)
			if err != nil {
				return fmt.Errorf("update item %s: %w", u.ID, err)
			}
			if err := expectOne(res, "item", u.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrUnknownRow)
	}
	return nil
}

// classify maps a foreign key violation (an item pointed at a group deleted
// mid-transaction) onto ErrUnknownRow.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%s: %w", pgErr.Message, ErrUnknownRow)
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return "<none>"
	}
	return *s
}

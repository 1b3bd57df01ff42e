package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/model"
)

const listColumns = `id, board_id, title, position, created_at, updated_at`

func scanList(row rowScanner) (*model.List, error) {
	var l model.List
	if err := row.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (db *DB) CreateList(ctx context.Context, list *model.List) error {
	now := time.Now().UTC()
	list.ID = xid.New().String()
	list.CreatedAt = now
	list.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO lists (`+listColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		list.ID, list.BoardID, list.Title, list.Position, list.CreatedAt, list.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("board", list.BoardID)
		}
		return fmt.Errorf("sqlite: inserting list: %w", err)
	}
	return nil
}

func (db *DB) GetList(ctx context.Context, id string) (*model.List, error) {
	l, err := scanList(db.conn.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("list", id)
		}
		return nil, fmt.Errorf("sqlite: getting list %s: %w", id, err)
	}
	return l, nil
}

func (db *DB) ListsByBoard(ctx context.Context, boardID string) ([]model.List, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE board_id = ? ORDER BY position, id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lists of board %s: %w", boardID, err)
	}
	defer rows.Close()

	lists := []model.List{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning list row: %w", err)
		}
		lists = append(lists, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lists: %w", err)
	}
	return lists, nil
}

func (db *DB) CountListsByBoard(ctx context.Context, boardID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lists WHERE board_id = ?`, boardID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting lists of board %s: %w", boardID, err)
	}
	return n, nil
}

func (db *DB) UpdateList(ctx context.Context, list *model.List) error {
	list.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE lists SET title = ?, position = ?, updated_at = ? WHERE id = ?`,
		list.Title, list.Position, list.UpdatedAt, list.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating list %s: %w", list.ID, err)
	}
	return checkAffected(res, apperror.NotFound("list", list.ID))
}

func (db *DB) DeleteList(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting list %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("list", id))
}

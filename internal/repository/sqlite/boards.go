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

const boardColumns = `b.id, b.name, b.owner_id, b.background, b.is_archived, b.is_favorite,
	b.is_template, b.created_at, b.updated_at`

func scanBoard(row rowScanner) (*model.Board, error) {
	var b model.Board
	err := row.Scan(&b.ID, &b.Name, &b.OwnerID, &b.Background, &b.IsArchived,
		&b.IsFavorite, &b.IsTemplate, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// loadMembers fills in the member list, preserving the order members were
// added in.
func loadMembers(ctx context.Context, q queryer, b *model.Board) error {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, role FROM board_members WHERE board_id = ? ORDER BY seq`, b.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading members of board %s: %w", b.ID, err)
	}
	defer rows.Close()

	b.Members = []model.Member{}
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.UserID, &m.Role); err != nil {
			return fmt.Errorf("sqlite: scanning member row: %w", err)
		}
		b.Members = append(b.Members, m)
	}
	return rows.Err()
}

func saveMembers(ctx context.Context, q queryer, b *model.Board) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM board_members WHERE board_id = ?`, b.ID); err != nil {
		return fmt.Errorf("sqlite: clearing members of board %s: %w", b.ID, err)
	}
	for i, m := range b.Members {
		_, err := q.ExecContext(ctx,
			`INSERT INTO board_members (board_id, user_id, role, seq) VALUES (?, ?, ?, ?)`,
			b.ID, m.UserID, m.Role, i)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("member", m.UserID)
			}
			return fmt.Errorf("sqlite: inserting member %s of board %s: %w", m.UserID, b.ID, err)
		}
	}
	return nil
}

func (db *DB) CreateBoard(ctx context.Context, board *model.Board) error {
	now := time.Now().UTC()
	board.ID = xid.New().String()
	board.CreatedAt = now
	board.UpdatedAt = now

	return db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO boards (id, name, owner_id, background, is_archived, is_favorite,
			 is_template, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			board.ID, board.Name, board.OwnerID, board.Background, board.IsArchived,
			board.IsFavorite, board.IsTemplate, board.CreatedAt, board.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting board: %w", err)
		}
		return saveMembers(ctx, tx, board)
	})
}

func (db *DB) GetBoard(ctx context.Context, id string) (*model.Board, error) {
	b, err := scanBoard(db.conn.QueryRowContext(ctx,
		`SELECT `+boardColumns+` FROM boards b WHERE b.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("board", id)
		}
		return nil, fmt.Errorf("sqlite: getting board %s: %w", id, err)
	}
	if err := loadMembers(ctx, db.conn, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (db *DB) ListBoardsForMember(ctx context.Context, userID string) ([]model.Board, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+boardColumns+`
		 FROM boards b JOIN board_members m ON m.board_id = b.id
		 WHERE m.user_id = ?
		 ORDER BY b.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing boards for %s: %w", userID, err)
	}

	boards := []model.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning board row: %w", err)
		}
		boards = append(boards, *b)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("sqlite: iterating boards: %w", err)
	}

	// Members are loaded after the cursor is closed: with a single pooled
	// connection (":memory:") a nested query would block forever.
	for i := range boards {
		if err := loadMembers(ctx, db.conn, &boards[i]); err != nil {
			return nil, err
		}
	}
	return boards, nil
}

func (db *DB) UpdateBoard(ctx context.Context, board *model.Board) error {
	board.UpdatedAt = time.Now().UTC()

	return db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE boards SET name = ?, owner_id = ?, background = ?, is_archived = ?,
			 is_favorite = ?, is_template = ?, updated_at = ?
			 WHERE id = ?`,
			board.Name, board.OwnerID, board.Background, board.IsArchived,
			board.IsFavorite, board.IsTemplate, board.UpdatedAt, board.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating board %s: %w", board.ID, err)
		}
		if err := checkAffected(res, apperror.NotFound("board", board.ID)); err != nil {
			return err
		}
		return saveMembers(ctx, tx, board)
	})
}

// DeleteBoard removes the board row; ON DELETE CASCADE clears members and
// anything the caller did not already delete underneath it.
func (db *DB) DeleteBoard(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting board %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("board", id))
}

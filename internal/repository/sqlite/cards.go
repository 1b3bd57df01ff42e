package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/model"
)

const cardColumns = `id, list_id, user_id, title, description, position, due_date,
	labels, attachments, checklist, created_at, updated_at`

func scanCard(row rowScanner) (*model.Card, error) {
	var (
		c                              model.Card
		due                            sql.NullTime
		labels, attachments, checklist string
	)
	err := row.Scan(&c.ID, &c.ListID, &c.UserID, &c.Title, &c.Description, &c.Position,
		&due, &labels, &attachments, &checklist, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if due.Valid {
		t := due.Time.UTC()
		c.DueDate = &t
	}

	c.Labels = []model.Label{}
	c.Attachments = []model.Attachment{}
	c.Checklist = []model.ChecklistItem{}
	c.Comments = []model.Comment{}
	if err := json.Unmarshal([]byte(labels), &c.Labels); err != nil {
		return nil, fmt.Errorf("decoding labels of card %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(attachments), &c.Attachments); err != nil {
		return nil, fmt.Errorf("decoding attachments of card %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(checklist), &c.Checklist); err != nil {
		return nil, fmt.Errorf("decoding checklist of card %s: %w", c.ID, err)
	}
	return &c, nil
}

// encodeNested marshals the JSON columns. nil slices are stored as [] so
// reads never produce null.
func encodeNested(c *model.Card) (labels, attachments, checklist string, err error) {
	enc := func(v any, empty bool) (string, error) {
		if empty {
			return "[]", nil
		}
		b, err := json.Marshal(v)
		return string(b), err
	}
	if labels, err = enc(c.Labels, len(c.Labels) == 0); err != nil {
		return
	}
	if attachments, err = enc(c.Attachments, len(c.Attachments) == 0); err != nil {
		return
	}
	checklist, err = enc(c.Checklist, len(c.Checklist) == 0)
	return
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (db *DB) CreateCard(ctx context.Context, card *model.Card) error {
	labels, attachments, checklist, err := encodeNested(card)
	if err != nil {
		return fmt.Errorf("sqlite: encoding card: %w", err)
	}

	now := time.Now().UTC()
	card.ID = xid.New().String()
	card.CreatedAt = now
	card.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.ListID, card.UserID, card.Title, card.Description, card.Position,
		nullTime(card.DueDate), labels, attachments, checklist, card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("list", card.ListID)
		}
		return fmt.Errorf("sqlite: inserting card: %w", err)
	}
	return nil
}

func (db *DB) GetCard(ctx context.Context, id string) (*model.Card, error) {
	c, err := scanCard(db.conn.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("card", id)
		}
		return nil, fmt.Errorf("sqlite: getting card %s: %w", id, err)
	}
	return c, nil
}

func (db *DB) CardsByList(ctx context.Context, listID string) ([]model.Card, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE list_id = ? ORDER BY position, id`, listID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing cards of list %s: %w", listID, err)
	}
	defer rows.Close()

	cards := []model.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning card row: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cards: %w", err)
	}
	return cards, nil
}

func (db *DB) CountCardsByList(ctx context.Context, listID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cards WHERE list_id = ?`, listID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting cards of list %s: %w", listID, err)
	}
	return n, nil
}

// UpdateCard writes every column, list_id included, so a move is one
// statement.
func (db *DB) UpdateCard(ctx context.Context, card *model.Card) error {
	labels, attachments, checklist, err := encodeNested(card)
	if err != nil {
		return fmt.Errorf("sqlite: encoding card %s: %w", card.ID, err)
	}
	card.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE cards SET list_id = ?, title = ?, description = ?, position = ?, due_date = ?,
		 labels = ?, attachments = ?, checklist = ?, updated_at = ?
		 WHERE id = ?`,
		card.ListID, card.Title, card.Description, card.Position, nullTime(card.DueDate),
		labels, attachments, checklist, card.UpdatedAt, card.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("list", card.ListID)
		}
		return fmt.Errorf("sqlite: updating card %s: %w", card.ID, err)
	}
	return checkAffected(res, apperror.NotFound("card", card.ID))
}

func (db *DB) DeleteCard(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting card %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("card", id))
}

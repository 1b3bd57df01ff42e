package model

import "time"

// Comment is a note left on a card. Only its author may edit it; the author
// or a board owner/admin may delete it.
type Comment struct {
	ID        string    `json:"id"        db:"id"`
	CardID    string    `json:"cardId"    db:"card_id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Text      string    `json:"text"      db:"text"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

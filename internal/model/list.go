package model

import "time"

// List is a column on a board. Position orders siblings within the board;
// it is not a uniqueness key and two lists may share a position.
type List struct {
	ID        string    `json:"id"        db:"id"`
	BoardID   string    `json:"boardId"   db:"board_id"`
	Title     string    `json:"title"     db:"title"`
	Position  int       `json:"position"  db:"position"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

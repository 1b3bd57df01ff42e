package model

import "time"

// Card is a task inside a list.
//
// Labels, Attachments and Checklist are owned by the card and stored with
// it. Comments are separate entities (see Comment); the service fills the
// Comments slice when a card is read, it is never written back.
type Card struct {
	ID          string          `json:"id"          db:"id"`
	ListID      string          `json:"listId"      db:"list_id"`
	UserID      string          `json:"userId"      db:"user_id"` // creator
	Title       string          `json:"title"       db:"title"`
	Description string          `json:"description" db:"description"`
	Position    int             `json:"position"    db:"position"`
	DueDate     *time.Time      `json:"dueDate"     db:"due_date"`
	Labels      []Label         `json:"labels"`
	Attachments []Attachment    `json:"attachments"`
	Checklist   []ChecklistItem `json:"checklist"`
	Comments    []Comment       `json:"comments"`
	CreatedAt   time.Time       `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt"   db:"updated_at"`
}

type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Attachment is metadata about an externally hosted file.
type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type ChecklistItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

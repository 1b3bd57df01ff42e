// Package events fans board changes out to WebSocket subscribers.
//
// Subscribers are grouped by board: a change to board B reaches only the
// clients watching B. Delivery is best-effort; a client whose buffer is
// full misses the event rather than slowing down the writer.
package events

import (
	"fmt"
	"time"
)

const (
	EntityBoard     = "board"
	EntityMember    = "member"
	EntityList      = "list"
	EntityCard      = "card"
	EntityChecklist = "checklist_item"
	EntityComment   = "comment"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionMoved   = "moved"
	ActionDeleted = "deleted"
)

// Event is the JSON message sent to subscribers.
type Event struct {
	Type    string    `json:"type"`
	Entity  string    `json:"entity"`
	Action  string    `json:"action"`
	ID      string    `json:"id"`
	BoardID string    `json:"boardId"`
	ActorID string    `json:"actorId,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// NewEvent fills Type as "<entity>_<action>".
func NewEvent(boardID, entity, action, id string, payload any) Event {
	return Event{
		Type:    fmt.Sprintf("%s_%s", entity, action),
		Entity:  entity,
		Action:  action,
		ID:      id,
		BoardID: boardID,
		Payload: payload,
		At:      time.Now().UTC(),
	}
}

package events

import (
	"encoding/json"
	"log/slog"
	"sync"

	ws "github.com/coder/websocket"
)

// Hub tracks subscribers per board.
type Hub struct {
	mu     sync.RWMutex
	boards map[string]map[*Client]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		boards: make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.boards[c.boardID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.boards[c.boardID] = clients
	}
	clients[c] = struct{}{}
}

// Unregister removes the client and closes its send channel. Unregistering
// twice, or after CloseBoard, is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c, ws.StatusNormalClosure, "")
}

// remove drops c and closes its send channel; reason is the close
// message the client's write pump sends once the buffer drains.
func (h *Hub) remove(c *Client, status ws.StatusCode, reason string) {
	clients, ok := h.boards[c.boardID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	c.closeStatus, c.closeReason = status, reason
	close(c.send)
	if len(clients) == 0 {
		delete(h.boards, c.boardID)
	}
}

// Publish sends e to every subscriber of e.BoardID.
func (h *Hub) Publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("marshal event", slog.String("type", e.Type), slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.boards[e.BoardID] {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("dropping event for slow subscriber",
				slog.String("boardID", e.BoardID),
				slog.String("type", e.Type),
			)
		}
	}
}

// CloseBoard disconnects every subscriber of a deleted board.
func (h *Hub) CloseBoard(boardID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.boards[boardID] {
		h.remove(c, ws.StatusGoingAway, "board deleted")
	}
}

// CloseMember disconnects userID's subscriptions to boardID. It is called
// when the user loses access to the board.
func (h *Hub) CloseMember(boardID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.boards[boardID] {
		if c.userID == userID {
			h.remove(c, ws.StatusPolicyViolation, "membership revoked")
		}
	}
}

// SubscriberCount returns how many clients watch boardID.
func (h *Hub) SubscriberCount(boardID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.boards[boardID])
}

package events

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// Serve upgrades the request and streams boardID's events to userID until
// the client disconnects. Callers must authorize the request first; admit
// repeats that check once the subscription is registered.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, boardID, userID string, originPatterns []string, admit Admit) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	h.logger.Debug("subscriber connected", slog.String("boardID", boardID), slog.String("userID", userID))
	NewClient(h, conn, boardID, userID).Run(r.Context(), admit)
	h.logger.Debug("subscriber disconnected", slog.String("boardID", boardID))
}

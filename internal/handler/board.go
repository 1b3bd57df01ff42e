package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/kanban/internal/events"
	"github.com/sakif/kanban/internal/model"
	"github.com/sakif/kanban/internal/service"
)

// BoardHandler serves boards and everything nested under them.
type BoardHandler struct {
	svc    *service.BoardService
	hub    *events.Hub
	logger *slog.Logger
	// originPatterns is passed to the websocket upgrader; empty means
	// same-origin only.
	originPatterns []string
}

func NewBoardHandler(svc *service.BoardService, hub *events.Hub, logger *slog.Logger, originPatterns []string) *BoardHandler {
	return &BoardHandler{svc: svc, hub: hub, logger: logger, originPatterns: originPatterns}
}

type createBoardRequest struct {
	Name       string `json:"name"`
	Background string `json:"background"`
	IsFavorite bool   `json:"isFavorite"`
	IsTemplate bool   `json:"isTemplate"`
}

type updateBoardRequest struct {
	Name       *string `json:"name"`
	Background *string `json:"background"`
	IsArchived *bool   `json:"isArchived"`
	IsFavorite *bool   `json:"isFavorite"`
	IsTemplate *bool   `json:"isTemplate"`
}

func (h *BoardHandler) HandleCreateBoard(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createBoardRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	board, err := h.svc.CreateBoard(r.Context(), userID, service.BoardInput{
		Name:       req.Name,
		Background: req.Background,
		IsFavorite: req.IsFavorite,
		IsTemplate: req.IsTemplate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, "/boards/"+board.ID, board)
}

func (h *BoardHandler) HandleListBoards(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	boards, err := h.svc.ListBoards(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (h *BoardHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	board, err := h.svc.GetBoard(r.Context(), userID, chi.URLParam(r, "boardId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *BoardHandler) HandleUpdateBoard(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateBoardRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	board, err := h.svc.UpdateBoard(r.Context(), userID, chi.URLParam(r, "boardId"), service.BoardUpdate{
		Name:       req.Name,
		Background: req.Background,
		IsArchived: req.IsArchived,
		IsFavorite: req.IsFavorite,
		IsTemplate: req.IsTemplate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/boards/"+board.ID)
	writeJSON(w, http.StatusOK, board)
}

func (h *BoardHandler) HandleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteBoard(r.Context(), userID, chi.URLParam(r, "boardId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBoardEvents serves GET /boards/{boardId}/events. Membership is
// checked before the websocket upgrade, so a rejected caller gets a normal
// JSON error response, and checked again once the subscription is
// registered so a concurrent removal or board delete cannot be missed.
func (h *BoardHandler) HandleBoardEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	boardID := chi.URLParam(r, "boardId")
	if err := h.svc.Authorize(r.Context(), userID, boardID); err != nil {
		writeError(w, err)
		return
	}
	h.hub.Serve(w, r, boardID, userID, h.originPatterns, func(ctx context.Context) error {
		return h.svc.Authorize(ctx, userID, boardID)
	})
}

// =========================================================================
// MEMBERS
// =========================================================================

type addMemberRequest struct {
	UserID string     `json:"userId"`
	Role   model.Role `json:"role"`
}

type updateMemberRequest struct {
	Role model.Role `json:"role"`
}

func (h *BoardHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req addMemberRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	board, err := h.svc.AddMember(r.Context(), userID, chi.URLParam(r, "boardId"), req.UserID, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, "/boards/"+board.ID+"/members/"+req.UserID, board)
}

func (h *BoardHandler) HandleUpdateMember(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateMemberRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	board, err := h.svc.UpdateMemberRole(r.Context(), userID,
		chi.URLParam(r, "boardId"), chi.URLParam(r, "userId"), req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *BoardHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	err = h.svc.RemoveMember(r.Context(), userID, chi.URLParam(r, "boardId"), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

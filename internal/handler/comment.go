package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/kanban/internal/apperror"
)

// commentRequest accepts "content" as an alias for "text".
type commentRequest struct {
	CardID  string `json:"cardId"`
	Text    string `json:"text"`
	Content string `json:"content"`
}

func (req commentRequest) body() string {
	if req.Text != "" {
		return req.Text
	}
	return req.Content
}

func (h *BoardHandler) createComment(w http.ResponseWriter, r *http.Request, cardID string, req commentRequest) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	comment, err := h.svc.CreateComment(r.Context(), userID, cardID, req.body())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, "/comments/"+comment.ID, comment)
}

// HandleCreateCardComment serves POST /cards/{cardId}/comments.
func (h *BoardHandler) HandleCreateCardComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.createComment(w, r, chi.URLParam(r, "cardId"), req)
}

// HandleCreateComment serves POST /comments, which names the card in the
// body.
func (h *BoardHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.CardID == "" {
		writeError(w, apperror.ValidationFailed("cardId", "cardId is required"))
		return
	}
	h.createComment(w, r, req.CardID, req)
}

func (h *BoardHandler) HandleListCardComments(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	comments, err := h.svc.ListCardComments(r.Context(), userID, chi.URLParam(r, "cardId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleListComments serves GET /comments: every comment the caller can see.
func (h *BoardHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	comments, err := h.svc.ListVisibleComments(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *BoardHandler) HandleGetComment(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	comment, err := h.svc.GetComment(r.Context(), userID, chi.URLParam(r, "commentId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *BoardHandler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req commentRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.svc.UpdateComment(r.Context(), userID, chi.URLParam(r, "commentId"), req.body())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *BoardHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteComment(r.Context(), userID, chi.URLParam(r, "commentId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

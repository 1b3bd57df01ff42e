package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/kanban/internal/service"
)

type createListRequest struct {
	Title string `json:"title"`
}

type updateListRequest struct {
	Title    *string `json:"title"`
	Position *int    `json:"position"`
}

func (h *BoardHandler) HandleCreateList(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createListRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	list, err := h.svc.CreateList(r.Context(), userID, chi.URLParam(r, "boardId"), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, "/lists/"+list.ID, list)
}

func (h *BoardHandler) HandleListLists(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	lists, err := h.svc.ListLists(r.Context(), userID, chi.URLParam(r, "boardId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *BoardHandler) HandleGetList(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.svc.GetList(r.Context(), userID, chi.URLParam(r, "listId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *BoardHandler) HandleUpdateList(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateListRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	list, err := h.svc.UpdateList(r.Context(), userID, chi.URLParam(r, "listId"), service.ListUpdate{
		Title:    req.Title,
		Position: req.Position,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/lists/"+list.ID)
	writeJSON(w, http.StatusOK, list)
}

func (h *BoardHandler) HandleDeleteList(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteList(r.Context(), userID, chi.URLParam(r, "listId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

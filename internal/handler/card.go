package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/model"
	"github.com/sakif/kanban/internal/service"
)

type createCardRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Position    *int               `json:"position"`
	DueDate     *time.Time         `json:"dueDate"`
	Labels      []model.Label      `json:"labels"`
	Attachments []model.Attachment `json:"attachments"`
}

// updateCardRequest keeps every field raw so that an explicit null can be
// told apart from an absent key. Only dueDate gives null a meaning: it
// clears the date. ID is read only by the list-scoped routes, which name
// the card in the body.
type updateCardRequest struct {
	ID          string              `json:"id"`
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Position    *int                `json:"position"`
	ListID      *string             `json:"listId"`
	DueDate     json.RawMessage     `json:"dueDate"`
	Labels      *[]model.Label      `json:"labels"`
	Attachments *[]model.Attachment `json:"attachments"`
}

func (req updateCardRequest) toUpdate() (service.CardUpdate, error) {
	upd := service.CardUpdate{
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
		ListID:      req.ListID,
		Labels:      req.Labels,
		Attachments: req.Attachments,
	}
	switch {
	case req.DueDate == nil:
	case string(req.DueDate) == "null":
		upd.ClearDueDate = true
	default:
		var due time.Time
		if err := json.Unmarshal(req.DueDate, &due); err != nil {
			return upd, apperror.ValidationFailed("dueDate", "dueDate must be an RFC 3339 timestamp or null")
		}
		upd.DueDate = &due
	}
	return upd, nil
}

type cardRefRequest struct {
	ID string `json:"id"`
}

type checklistRequest struct {
	Text string `json:"text"`
	Item string `json:"item"`
}

type checklistToggleRequest struct {
	Completed *bool `json:"completed"`
}

func (h *BoardHandler) HandleCreateCard(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createCardRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	listID := chi.URLParam(r, "listId")
	card, err := h.svc.CreateCard(r.Context(), userID, listID, service.CardInput{
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
		DueDate:     req.DueDate,
		Labels:      req.Labels,
		Attachments: req.Attachments,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, "/lists/"+listID+"/cards/"+card.ID, card)
}

func (h *BoardHandler) HandleListCards(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cards, err := h.svc.ListCards(r.Context(), userID, chi.URLParam(r, "listId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *BoardHandler) HandleGetCardInList(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	card, err := h.svc.GetCardInList(r.Context(), userID, chi.URLParam(r, "listId"), chi.URLParam(r, "cardId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *BoardHandler) HandleGetCard(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	card, err := h.svc.GetCard(r.Context(), userID, chi.URLParam(r, "cardId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *BoardHandler) HandleUpdateCard(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateCardRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		writeError(w, err)
		return
	}

	card, err := h.svc.UpdateCard(r.Context(), userID, chi.URLParam(r, "cardId"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/lists/"+card.ListID+"/cards/"+card.ID)
	writeJSON(w, http.StatusOK, card)
}

// HandleUpdateCardInList serves PUT /lists/{listId}/cards with the card id
// in the body. A card from another list is a 400.
func (h *BoardHandler) HandleUpdateCardInList(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateCardRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		writeError(w, err)
		return
	}

	card, err := h.svc.UpdateCardInList(r.Context(), userID, chi.URLParam(r, "listId"), req.ID, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/lists/"+card.ListID+"/cards/"+card.ID)
	writeJSON(w, http.StatusOK, card)
}

// HandleDeleteCardInList serves DELETE /lists/{listId}/cards with the card
// id in the body.
func (h *BoardHandler) HandleDeleteCardInList(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req cardRefRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteCardInList(r.Context(), userID, chi.URLParam(r, "listId"), req.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) HandleDeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteCard(r.Context(), userID, chi.URLParam(r, "cardId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddChecklistItem accepts {"text": ...}; "item" is read as an alias.
func (h *BoardHandler) HandleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req checklistRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	text := req.Text
	if text == "" {
		text = req.Item
	}

	cardID := chi.URLParam(r, "cardId")
	item, err := h.svc.AddChecklistItem(r.Context(), userID, cardID, text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, "/cards/"+cardID+"/checklist/"+item.ID, item)
}

func (h *BoardHandler) HandleToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	userID, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req checklistToggleRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	card, err := h.svc.SetChecklistItemCompleted(r.Context(), userID,
		chi.URLParam(r, "cardId"), chi.URLParam(r, "itemId"), req.Completed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

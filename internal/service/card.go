package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/events"
	"github.com/sakif/kanban/internal/model"
)

// CardInput carries the fields accepted on card creation. A nil Position
// appends the card to the end of the list.
type CardInput struct {
	Title       string
	Description string
	Position    *int
	DueDate     *time.Time
	Labels      []model.Label
	Attachments []model.Attachment
}

// CardUpdate is a partial update: nil fields keep their value.
// ClearDueDate removes the due date; it wins over DueDate.
type CardUpdate struct {
	Title        *string
	Description  *string
	Position     *int
	ListID       *string
	DueDate      *time.Time
	ClearDueDate bool
	Labels       *[]model.Label
	Attachments  *[]model.Attachment
}

// normalizeLabels gives every label an id. Labels are stored as sent.
func normalizeLabels(in []model.Label) []model.Label {
	out := make([]model.Label, len(in))
	for i, l := range in {
		if l.ID == "" {
			l.ID = xid.New().String()
		}
		out[i] = l
	}
	return out
}

func normalizeAttachments(in []model.Attachment) []model.Attachment {
	now := time.Now().UTC()
	out := make([]model.Attachment, len(in))
	for i, a := range in {
		if a.ID == "" {
			a.ID = xid.New().String()
		}
		if a.UploadedAt.IsZero() {
			a.UploadedAt = now
		}
		out[i] = a
	}
	return out
}

func validDescription(desc string) error {
	if len(desc) > MaxTextLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxTextLength))
	}
	return nil
}

// withComments attaches the card's comments in creation order.
func (s *BoardService) withComments(ctx context.Context, card *model.Card) error {
	comments, err := s.repo.CommentsByCard(ctx, card.ID)
	if err != nil {
		return fmt.Errorf("loading comments of card %s: %w", card.ID, err)
	}
	card.Comments = comments
	return nil
}

func (s *BoardService) cardsWithComments(ctx context.Context, listID string) ([]model.Card, error) {
	cards, err := s.repo.CardsByList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("loading cards of list %s: %w", listID, err)
	}
	for i := range cards {
		if err := s.withComments(ctx, &cards[i]); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

// =========================================================================
// CARDS
// =========================================================================

func (s *BoardService) CreateCard(ctx context.Context, actor, listID string, in CardInput) (*model.Card, error) {
	title, err := validTitle(in.Title, "card")
	if err != nil {
		return nil, err
	}
	if err := validDescription(in.Description); err != nil {
		return nil, err
	}
	if in.Position != nil {
		if err := validPosition(*in.Position); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, board, err := s.memberList(ctx, actor, listID)
	if err != nil {
		return nil, err
	}

	pos := 0
	if in.Position != nil {
		pos = *in.Position
	} else {
		n, err := s.repo.CountCardsByList(ctx, listID)
		if err != nil {
			return nil, fmt.Errorf("counting cards of list %s: %w", listID, err)
		}
		pos = n
	}

	var due *time.Time
	if in.DueDate != nil {
		d := in.DueDate.UTC()
		due = &d
	}

	card := &model.Card{
		ListID:      listID,
		UserID:      actor,
		Title:       title,
		Description: in.Description,
		Position:    pos,
		DueDate:     due,
		Labels:      normalizeLabels(in.Labels),
		Attachments: normalizeAttachments(in.Attachments),
		Checklist:   []model.ChecklistItem{},
	}
	if err := s.repo.CreateCard(ctx, card); err != nil {
		return nil, fmt.Errorf("creating card: %w", err)
	}
	card.Comments = []model.Comment{}

	s.logger.Info("card created", slog.String("id", card.ID), slog.String("listID", listID))
	s.publish(board.ID, actor, events.EntityCard, events.ActionCreated, card.ID, card)
	return card, nil
}

// ListCards returns the list's cards ordered by position, with comments.
func (s *BoardService) ListCards(ctx context.Context, actor, listID string) ([]model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, _, err := s.memberList(ctx, actor, listID); err != nil {
		return nil, err
	}
	return s.cardsWithComments(ctx, listID)
}

// GetCard returns the card with its comments.
func (s *BoardService) GetCard(ctx context.Context, actor, cardID string) (*model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, _, err := s.memberCard(ctx, actor, cardID)
	if err != nil {
		return nil, err
	}
	if err := s.withComments(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// GetCardInList is GetCard addressed through its list. A card that exists
// but lives in another list is reported as not found.
func (s *BoardService) GetCardInList(ctx context.Context, actor, listID, cardID string) (*model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, _, err := s.memberList(ctx, actor, listID); err != nil {
		return nil, err
	}
	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.ListID != listID {
		return nil, apperror.NotFound("card", cardID)
	}
	if err := s.withComments(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// normalize validates the update and trims the title in place.
func (upd *CardUpdate) normalize() error {
	if upd.Title != nil {
		t, err := validTitle(*upd.Title, "card")
		if err != nil {
			return err
		}
		upd.Title = &t
	}
	if upd.Description != nil {
		if err := validDescription(*upd.Description); err != nil {
			return err
		}
	}
	if upd.Position != nil {
		if err := validPosition(*upd.Position); err != nil {
			return err
		}
	}
	if upd.ListID != nil && strings.TrimSpace(*upd.ListID) == "" {
		return apperror.ValidationFailed("listId", "listId must not be empty")
	}
	return nil
}

// memberCardInList resolves a card addressed through its list: the list
// first, then the card. Unlike GetCardInList, a card from another list is
// a bad request rather than a miss. Callers hold the lock.
func (s *BoardService) memberCardInList(ctx context.Context, actor, listID, cardID string) (*model.Card, *model.Board, error) {
	if strings.TrimSpace(cardID) == "" {
		return nil, nil, apperror.ValidationFailed("id", "card id is required")
	}
	_, board, err := s.memberList(ctx, actor, listID)
	if err != nil {
		return nil, nil, err
	}
	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return nil, nil, err
	}
	if card.ListID != listID {
		return nil, nil, apperror.ValidationFailed("id", "card does not belong to the specified list")
	}
	return card, board, nil
}

// UpdateCard applies a partial update. Changing ListID moves the card; the
// target list must belong to the same board. A move without an explicit
// position appends the card to the target list.
func (s *BoardService) UpdateCard(ctx context.Context, actor, cardID string, upd CardUpdate) (*model.Card, error) {
	if err := upd.normalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card, board, err := s.memberCard(ctx, actor, cardID)
	if err != nil {
		return nil, err
	}
	return s.applyCardUpdate(ctx, actor, card, board, upd)
}

// UpdateCardInList is UpdateCard addressed through the card's current list.
func (s *BoardService) UpdateCardInList(ctx context.Context, actor, listID, cardID string, upd CardUpdate) (*model.Card, error) {
	if err := upd.normalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card, board, err := s.memberCardInList(ctx, actor, listID, cardID)
	if err != nil {
		return nil, err
	}
	return s.applyCardUpdate(ctx, actor, card, board, upd)
}

// applyCardUpdate writes a normalized update. Callers hold the write lock
// and have checked membership.
func (s *BoardService) applyCardUpdate(ctx context.Context, actor string, card *model.Card, board *model.Board, upd CardUpdate) (*model.Card, error) {
	moved := false
	if upd.ListID != nil && *upd.ListID != card.ListID {
		target, err := s.repo.GetList(ctx, *upd.ListID)
		if err != nil {
			return nil, err
		}
		if target.BoardID != board.ID {
			return nil, apperror.Forbidden("cannot move card across boards")
		}
		if upd.Position == nil {
			n, err := s.repo.CountCardsByList(ctx, target.ID)
			if err != nil {
				return nil, fmt.Errorf("counting cards of list %s: %w", target.ID, err)
			}
			card.Position = n
		}
		card.ListID = target.ID
		moved = true
	}

	if upd.Title != nil {
		card.Title = *upd.Title
	}
	if upd.Description != nil {
		card.Description = *upd.Description
	}
	if upd.Position != nil {
		card.Position = *upd.Position
	}
	if upd.ClearDueDate {
		card.DueDate = nil
	} else if upd.DueDate != nil {
		due := upd.DueDate.UTC()
		card.DueDate = &due
	}
	if upd.Labels != nil {
		card.Labels = normalizeLabels(*upd.Labels)
	}
	if upd.Attachments != nil {
		card.Attachments = normalizeAttachments(*upd.Attachments)
	}

	if err := s.repo.UpdateCard(ctx, card); err != nil {
		return nil, fmt.Errorf("updating card %s: %w", card.ID, err)
	}
	if err := s.withComments(ctx, card); err != nil {
		return nil, err
	}

	action := events.ActionUpdated
	if moved {
		action = events.ActionMoved
		s.logger.Info("card moved", slog.String("id", card.ID), slog.String("listID", card.ListID))
	}
	s.publish(board.ID, actor, events.EntityCard, action, card.ID, card)
	return card, nil
}

// DeleteCard removes the card and its comments.
func (s *BoardService) DeleteCard(ctx context.Context, actor, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, board, err := s.memberCard(ctx, actor, cardID)
	if err != nil {
		return err
	}
	return s.removeCard(ctx, actor, board, cardID)
}

// DeleteCardInList is DeleteCard addressed through the card's list.
func (s *BoardService) DeleteCardInList(ctx context.Context, actor, listID, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, board, err := s.memberCardInList(ctx, actor, listID, cardID)
	if err != nil {
		return err
	}
	return s.removeCard(ctx, actor, board, cardID)
}

func (s *BoardService) removeCard(ctx context.Context, actor string, board *model.Board, cardID string) error {
	if err := s.deleteCardTree(ctx, cardID); err != nil {
		return err
	}

	s.logger.Info("card deleted", slog.String("id", cardID))
	s.publish(board.ID, actor, events.EntityCard, events.ActionDeleted, cardID, nil)
	return nil
}

// =========================================================================
// CHECKLIST
// =========================================================================

// AddChecklistItem appends an unchecked item to the card's checklist.
func (s *BoardService) AddChecklistItem(ctx context.Context, actor, cardID, text string) (*model.ChecklistItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "checklist item text is required")
	}
	if len(text) > MaxTitleLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("checklist item text must be %d characters or less", MaxTitleLength))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card, board, err := s.memberCard(ctx, actor, cardID)
	if err != nil {
		return nil, err
	}

	item := model.ChecklistItem{
		ID:        xid.New().String(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	card.Checklist = append(card.Checklist, item)
	if err := s.repo.UpdateCard(ctx, card); err != nil {
		return nil, fmt.Errorf("adding checklist item to card %s: %w", cardID, err)
	}

	s.publish(board.ID, actor, events.EntityChecklist, events.ActionCreated, item.ID, item)
	return &item, nil
}

// SetChecklistItemCompleted marks an item done or not done and returns the
// updated card. completed is a pointer so a missing value can be told
// apart from false.
func (s *BoardService) SetChecklistItemCompleted(ctx context.Context, actor, cardID, itemID string, completed *bool) (*model.Card, error) {
	if completed == nil {
		return nil, apperror.ValidationFailed("completed", "completed is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card, board, err := s.memberCard(ctx, actor, cardID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range card.Checklist {
		if card.Checklist[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperror.NotFound("checklist item", itemID)
	}

	card.Checklist[idx].Completed = *completed
	if err := s.repo.UpdateCard(ctx, card); err != nil {
		return nil, fmt.Errorf("updating checklist item %s: %w", itemID, err)
	}
	if err := s.withComments(ctx, card); err != nil {
		return nil, err
	}

	s.publish(board.ID, actor, events.EntityChecklist, events.ActionUpdated, itemID, card.Checklist[idx])
	return card, nil
}

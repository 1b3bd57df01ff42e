package memory

import (
	"context"
	"sort"
	"time"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/model"
)

// copyCard deep-copies the slices a card owns. Comments are not stored on
// the card, so the copy always has an empty Comments slice.
func copyCard(c *model.Card) model.Card {
	out := *c
	if c.DueDate != nil {
		due := *c.DueDate
		out.DueDate = &due
	}
	out.Labels = append([]model.Label{}, c.Labels...)
	out.Attachments = append([]model.Attachment{}, c.Attachments...)
	out.Checklist = append([]model.ChecklistItem{}, c.Checklist...)
	out.Comments = []model.Comment{}
	return out
}

func (s *Store) CreateCard(_ context.Context, card *model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[card.ListID]; !ok {
		return apperror.NotFound("list", card.ListID)
	}

	now := time.Now().UTC()
	card.ID = newID()
	card.CreatedAt = now
	card.UpdatedAt = now

	stored := copyCard(card)
	s.cards[card.ID] = &stored
	addTo(s.listCards, card.ListID, card.ID)
	return nil
}

func (s *Store) GetCard(_ context.Context, id string) (*model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[id]
	if !ok {
		return nil, apperror.NotFound("card", id)
	}
	out := copyCard(c)
	return &out, nil
}

func (s *Store) CardsByList(_ context.Context, listID string) ([]model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Card, 0, len(s.listCards[listID]))
	for id := range s.listCards[listID] {
		out = append(out, copyCard(s.cards[id]))
	}
	sort.Slice(out, byPosition(
		func(i int) int { return out[i].Position },
		func(i int) string { return out[i].ID },
	))
	return out, nil
}

func (s *Store) CountCardsByList(_ context.Context, listID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listCards[listID]), nil
}

// UpdateCard stores the card and moves it between list indices when ListID
// changed.
func (s *Store) UpdateCard(_ context.Context, card *model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.cards[card.ID]
	if !ok {
		return apperror.NotFound("card", card.ID)
	}
	if old.ListID != card.ListID {
		if _, ok := s.lists[card.ListID]; !ok {
			return apperror.NotFound("list", card.ListID)
		}
		removeFrom(s.listCards, old.ListID, card.ID)
		addTo(s.listCards, card.ListID, card.ID)
	}

	card.UpdatedAt = time.Now().UTC()
	stored := copyCard(card)
	s.cards[card.ID] = &stored
	return nil
}

func (s *Store) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return apperror.NotFound("card", id)
	}
	removeFrom(s.listCards, c.ListID, id)
	delete(s.cardNotes, id)
	delete(s.cards, id)
	return nil
}

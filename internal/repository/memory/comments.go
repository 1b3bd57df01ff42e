package memory

import (
	"context"
	"sort"
	"time"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/model"
)

func (s *Store) CreateComment(_ context.Context, comment *model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[comment.CardID]; !ok {
		return apperror.NotFound("card", comment.CardID)
	}

	now := time.Now().UTC()
	comment.ID = newID()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	stored := *comment
	s.comments[comment.ID] = &stored
	addTo(s.cardNotes, comment.CardID, comment.ID)
	return nil
}

func (s *Store) GetComment(_ context.Context, id string) (*model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, apperror.NotFound("comment", id)
	}
	out := *c
	return &out, nil
}

func (s *Store) CommentsByCard(_ context.Context, cardID string) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Comment, 0, len(s.cardNotes[cardID]))
	for id := range s.cardNotes[cardID] {
		out = append(out, *s.comments[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateComment(_ context.Context, comment *model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[comment.ID]; !ok {
		return apperror.NotFound("comment", comment.ID)
	}
	comment.UpdatedAt = time.Now().UTC()
	stored := *comment
	s.comments[comment.ID] = &stored
	return nil
}

func (s *Store) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return apperror.NotFound("comment", id)
	}
	removeFrom(s.cardNotes, c.CardID, id)
	delete(s.comments, id)
	return nil
}

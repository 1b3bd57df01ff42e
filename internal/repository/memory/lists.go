package memory

import (
	"context"
	"sort"
	"time"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/model"
)

func (s *Store) CreateList(_ context.Context, list *model.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[list.BoardID]; !ok {
		return apperror.NotFound("board", list.BoardID)
	}

	now := time.Now().UTC()
	list.ID = newID()
	list.CreatedAt = now
	list.UpdatedAt = now

	stored := *list
	s.lists[list.ID] = &stored
	addTo(s.boardLists, list.BoardID, list.ID)
	return nil
}

func (s *Store) GetList(_ context.Context, id string) (*model.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lists[id]
	if !ok {
		return nil, apperror.NotFound("list", id)
	}
	out := *l
	return &out, nil
}

func (s *Store) ListsByBoard(_ context.Context, boardID string) ([]model.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.List, 0, len(s.boardLists[boardID]))
	for id := range s.boardLists[boardID] {
		out = append(out, *s.lists[id])
	}
	sort.Slice(out, byPosition(
		func(i int) int { return out[i].Position },
		func(i int) string { return out[i].ID },
	))
	return out, nil
}

func (s *Store) CountListsByBoard(_ context.Context, boardID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.boardLists[boardID]), nil
}

func (s *Store) UpdateList(_ context.Context, list *model.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.lists[list.ID]
	if !ok {
		return apperror.NotFound("list", list.ID)
	}
	if old.BoardID != list.BoardID {
		removeFrom(s.boardLists, old.BoardID, list.ID)
		addTo(s.boardLists, list.BoardID, list.ID)
	}

	list.UpdatedAt = time.Now().UTC()
	stored := *list
	s.lists[list.ID] = &stored
	return nil
}

func (s *Store) DeleteList(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[id]
	if !ok {
		return apperror.NotFound("list", id)
	}
	removeFrom(s.boardLists, l.BoardID, id)
	delete(s.listCards, id)
	delete(s.lists, id)
	return nil
}

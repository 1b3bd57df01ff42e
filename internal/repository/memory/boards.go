package memory

import (
	"context"
	"sort"
	"time"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/model"
)

func copyBoard(b *model.Board) model.Board {
	out := *b
	out.Members = append([]model.Member(nil), b.Members...)
	return out
}

func (s *Store) CreateBoard(_ context.Context, board *model.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	board.ID = newID()
	board.CreatedAt = now
	board.UpdatedAt = now

	stored := copyBoard(board)
	s.boards[board.ID] = &stored
	for _, m := range stored.Members {
		addTo(s.memberOf, m.UserID, board.ID)
	}
	return nil
}

func (s *Store) GetBoard(_ context.Context, id string) (*model.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[id]
	if !ok {
		return nil, apperror.NotFound("board", id)
	}
	out := copyBoard(b)
	return &out, nil
}

// ListBoardsForMember uses the user → boards index, so its cost is
// proportional to the user's memberships, not to the number of boards.
func (s *Store) ListBoardsForMember(_ context.Context, userID string) ([]model.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Board, 0, len(s.memberOf[userID]))
	for id := range s.memberOf[userID] {
		out = append(out, copyBoard(s.boards[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateBoard replaces the stored board and re-indexes its members.
func (s *Store) UpdateBoard(_ context.Context, board *model.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.boards[board.ID]
	if !ok {
		return apperror.NotFound("board", board.ID)
	}
	for _, m := range old.Members {
		removeFrom(s.memberOf, m.UserID, board.ID)
	}

	board.UpdatedAt = time.Now().UTC()
	stored := copyBoard(board)
	s.boards[board.ID] = &stored
	for _, m := range stored.Members {
		addTo(s.memberOf, m.UserID, board.ID)
	}
	return nil
}

// DeleteBoard removes the board row only. Callers delete the lists, cards
// and comments underneath it first.
func (s *Store) DeleteBoard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[id]
	if !ok {
		return apperror.NotFound("board", id)
	}
	for _, m := range b.Members {
		removeFrom(s.memberOf, m.UserID, id)
	}
	delete(s.boardLists, id)
	delete(s.boards, id)
	return nil
}

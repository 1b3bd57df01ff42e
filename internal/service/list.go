package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/events"
	"github.com/sakif/kanban/internal/model"
)

// ListUpdate is a partial update: nil fields keep their value.
type ListUpdate struct {
	Title    *string
	Position *int
}

func validTitle(title, what string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.ValidationFailed("title", what+" title is required")
	}
	if len(title) > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("%s title must be %d characters or less", what, MaxTitleLength))
	}
	return title, nil
}

func validPosition(pos int) error {
	if pos < 0 {
		return apperror.ValidationFailed("position", "position must be zero or greater")
	}
	return nil
}

// CreateList appends a list to the board: its position is the number of
// lists already there.
func (s *BoardService) CreateList(ctx context.Context, actor, boardID, title string) (*model.List, error) {
	title, err := validTitle(title, "list")
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := authorize(board, actor, model.RoleMember, notMember); err != nil {
		return nil, err
	}

	n, err := s.repo.CountListsByBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("counting lists of board %s: %w", boardID, err)
	}

	list := &model.List{BoardID: boardID, Title: title, Position: n}
	if err := s.repo.CreateList(ctx, list); err != nil {
		return nil, fmt.Errorf("creating list: %w", err)
	}

	s.logger.Info("list created", slog.String("id", list.ID), slog.String("boardID", boardID))
	s.publish(boardID, actor, events.EntityList, events.ActionCreated, list.ID, list)
	return list, nil
}

// ListLists returns the board's lists ordered by position.
func (s *BoardService) ListLists(ctx context.Context, actor, boardID string) ([]model.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	board, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := authorize(board, actor, model.RoleMember, notMember); err != nil {
		return nil, err
	}

	lists, err := s.repo.ListsByBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("listing lists of board %s: %w", boardID, err)
	}
	return lists, nil
}

func (s *BoardService) GetList(ctx context.Context, actor, listID string) (*model.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, _, err := s.memberList(ctx, actor, listID)
	return list, err
}

// UpdateList changes title and/or position. Positions of sibling lists are
// left alone, so two lists may end up sharing a position.
func (s *BoardService) UpdateList(ctx context.Context, actor, listID string, upd ListUpdate) (*model.List, error) {
	var title string
	if upd.Title != nil {
		t, err := validTitle(*upd.Title, "list")
		if err != nil {
			return nil, err
		}
		title = t
	}
	if upd.Position != nil {
		if err := validPosition(*upd.Position); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, board, err := s.memberList(ctx, actor, listID)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		list.Title = title
	}
	if upd.Position != nil {
		list.Position = *upd.Position
	}

	if err := s.repo.UpdateList(ctx, list); err != nil {
		return nil, fmt.Errorf("updating list %s: %w", listID, err)
	}

	s.publish(board.ID, actor, events.EntityList, events.ActionUpdated, list.ID, list)
	return list, nil
}

// DeleteList removes the list with its cards and their comments.
func (s *BoardService) DeleteList(ctx context.Context, actor, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, board, err := s.memberList(ctx, actor, listID)
	if err != nil {
		return err
	}
	if err := s.deleteListTree(ctx, listID); err != nil {
		return err
	}

	s.logger.Info("list deleted", slog.String("id", listID), slog.String("boardID", board.ID))
	s.publish(board.ID, actor, events.EntityList, events.ActionDeleted, listID, nil)
	return nil
}

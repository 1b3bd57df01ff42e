package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/events"
	"github.com/sakif/kanban/internal/model"
	"github.com/sakif/kanban/internal/repository"
)

const (
	MaxBoardNameLength = 100
	MaxTitleLength     = 200
	MaxTextLength      = 10000
)

// Publisher receives an event after every successful change.
type Publisher interface {
	Publish(e events.Event)
	CloseBoard(boardID string)
	// CloseMember ends userID's subscriptions to boardID.
	CloseMember(boardID, userID string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event)       {}
func (nopPublisher) CloseBoard(string)          {}
func (nopPublisher) CloseMember(string, string) {}

// BoardService owns boards and everything under them: lists, cards,
// checklist items and comments.
//
// Every operation resolves its target up to the owning board and checks
// the caller's membership there. Resolution goes board → list → card →
// comment and the first missing link is reported as NotFound before any
// permission check runs.
//
// mu serializes mutations against each other and against reads, so a
// membership check and the change it guards always see the same state,
// and a cascading delete is never observed half done.
type BoardService struct {
	mu     sync.RWMutex
	repo   repository.HierarchyRepository
	events Publisher
	logger *slog.Logger
}

// NewBoardService wires the service. A nil publisher disables events.
func NewBoardService(repo repository.HierarchyRepository, publisher Publisher, logger *slog.Logger) *BoardService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &BoardService{repo: repo, events: publisher, logger: logger}
}

// BoardInput carries the fields accepted on board creation.
type BoardInput struct {
	Name       string
	Background string
	IsFavorite bool
	IsTemplate bool
}

// BoardUpdate is a partial update: nil fields keep their value.
type BoardUpdate struct {
	Name       *string
	Background *string
	IsArchived *bool
	IsFavorite *bool
	IsTemplate *bool
}

// =========================================================================
// ACCESS CHECKS
// =========================================================================

const notMember = "you are not a member of this board"

// authorize returns Forbidden unless actor is on the board with at least
// role min.
func authorize(board *model.Board, actor string, min model.Role, denied string) error {
	role, ok := board.MemberRole(actor)
	if !ok {
		return apperror.Forbidden(notMember)
	}
	if !role.AtLeast(min) {
		return apperror.Forbidden(denied)
	}
	return nil
}

func (s *BoardService) boardOf(ctx context.Context, list *model.List) (*model.Board, error) {
	return s.repo.GetBoard(ctx, list.BoardID)
}

// resolveList loads a list and its board.
func (s *BoardService) resolveList(ctx context.Context, listID string) (*model.List, *model.Board, error) {
	list, err := s.repo.GetList(ctx, listID)
	if err != nil {
		return nil, nil, err
	}
	board, err := s.boardOf(ctx, list)
	if err != nil {
		return nil, nil, err
	}
	return list, board, nil
}

// resolveCard loads a card, its list and its board.
func (s *BoardService) resolveCard(ctx context.Context, cardID string) (*model.Card, *model.List, *model.Board, error) {
	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return nil, nil, nil, err
	}
	list, board, err := s.resolveList(ctx, card.ListID)
	if err != nil {
		return nil, nil, nil, err
	}
	return card, list, board, nil
}

func (s *BoardService) memberList(ctx context.Context, actor, listID string) (*model.List, *model.Board, error) {
	list, board, err := s.resolveList(ctx, listID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(board, actor, model.RoleMember, notMember); err != nil {
		return nil, nil, err
	}
	return list, board, nil
}

func (s *BoardService) memberCard(ctx context.Context, actor, cardID string) (*model.Card, *model.Board, error) {
	card, _, board, err := s.resolveCard(ctx, cardID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(board, actor, model.RoleMember, notMember); err != nil {
		return nil, nil, err
	}
	return card, board, nil
}

func (s *BoardService) publish(boardID, actor, entity, action, id string, payload any) {
	e := events.NewEvent(boardID, entity, action, id, payload)
	e.ActorID = actor
	s.events.Publish(e)
}

// =========================================================================
// BOARDS
// =========================================================================

func validBoardName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed("name", "board name is required")
	}
	if len(name) > MaxBoardNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("board name must be %d characters or less", MaxBoardNameLength))
	}
	return name, nil
}

// CreateBoard makes actor the board's only member, with role owner.
func (s *BoardService) CreateBoard(ctx context.Context, actor string, in BoardInput) (*model.Board, error) {
	name, err := validBoardName(in.Name)
	if err != nil {
		return nil, err
	}

	board := &model.Board{
		Name:       name,
		OwnerID:    actor,
		Background: strings.TrimSpace(in.Background),
		IsFavorite: in.IsFavorite,
		IsTemplate: in.IsTemplate,
		Members:    []model.Member{{UserID: actor, Role: model.RoleOwner}},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.CreateBoard(ctx, board); err != nil {
		s.logger.Error("failed to create board", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating board: %w", err)
	}

	s.logger.Info("board created", slog.String("id", board.ID), slog.String("ownerID", actor))
	s.publish(board.ID, actor, events.EntityBoard, events.ActionCreated, board.ID, board)
	return board, nil
}

// ListBoards returns the boards actor is a member of.
func (s *BoardService) ListBoards(ctx context.Context, actor string) ([]model.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	boards, err := s.repo.ListBoardsForMember(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}
	return boards, nil
}

// GetBoard returns the board with its lists and their cards.
func (s *BoardService) GetBoard(ctx context.Context, actor, boardID string) (*model.BoardDetail, error) {
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
		return nil, fmt.Errorf("loading lists of board %s: %w", boardID, err)
	}

	detail := &model.BoardDetail{Board: *board, Lists: make([]model.ListWithCards, 0, len(lists))}
	for _, l := range lists {
		cards, err := s.cardsWithComments(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		detail.Lists = append(detail.Lists, model.ListWithCards{List: l, Cards: cards})
	}
	return detail, nil
}

// Authorize reports whether actor may read boardID. The event stream calls
// it before upgrading the connection.
func (s *BoardService) Authorize(ctx context.Context, actor, boardID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	board, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	return authorize(board, actor, model.RoleMember, notMember)
}

// UpdateBoard requires owner or admin.
func (s *BoardService) UpdateBoard(ctx context.Context, actor, boardID string, upd BoardUpdate) (*model.Board, error) {
	var name string
	if upd.Name != nil {
		n, err := validBoardName(*upd.Name)
		if err != nil {
			return nil, err
		}
		name = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := authorize(board, actor, model.RoleAdmin, "only the board owner or an admin can update the board"); err != nil {
		return nil, err
	}

	if upd.Name != nil {
		board.Name = name
	}
	if upd.Background != nil {
		board.Background = strings.TrimSpace(*upd.Background)
	}
	if upd.IsArchived != nil {
		board.IsArchived = *upd.IsArchived
	}
	if upd.IsFavorite != nil {
		board.IsFavorite = *upd.IsFavorite
	}
	if upd.IsTemplate != nil {
		board.IsTemplate = *upd.IsTemplate
	}

	if err := s.repo.UpdateBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("updating board %s: %w", boardID, err)
	}

	s.publish(board.ID, actor, events.EntityBoard, events.ActionUpdated, board.ID, board)
	return board, nil
}

// DeleteBoard requires owner. Comments, cards and lists are deleted first,
// leaf to root, then the board itself.
func (s *BoardService) DeleteBoard(ctx context.Context, actor, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if err := authorize(board, actor, model.RoleOwner, "only the board owner can delete the board"); err != nil {
		return err
	}

	lists, err := s.repo.ListsByBoard(ctx, boardID)
	if err != nil {
		return fmt.Errorf("loading lists of board %s: %w", boardID, err)
	}
	for _, l := range lists {
		if err := s.deleteListTree(ctx, l.ID); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteBoard(ctx, boardID); err != nil {
		return fmt.Errorf("deleting board %s: %w", boardID, err)
	}

	s.logger.Info("board deleted",
		slog.String("id", boardID),
		slog.Int("lists", len(lists)),
	)
	s.publish(boardID, actor, events.EntityBoard, events.ActionDeleted, boardID, nil)
	s.events.CloseBoard(boardID)
	return nil
}

// deleteListTree deletes a list's cards (with their comments), then the
// list. Callers hold the write lock.
func (s *BoardService) deleteListTree(ctx context.Context, listID string) error {
	cards, err := s.repo.CardsByList(ctx, listID)
	if err != nil {
		return fmt.Errorf("loading cards of list %s: %w", listID, err)
	}
	for _, c := range cards {
		if err := s.deleteCardTree(ctx, c.ID); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteList(ctx, listID); err != nil {
		return fmt.Errorf("deleting list %s: %w", listID, err)
	}
	return nil
}

// deleteCardTree deletes a card's comments, then the card.
func (s *BoardService) deleteCardTree(ctx context.Context, cardID string) error {
	comments, err := s.repo.CommentsByCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("loading comments of card %s: %w", cardID, err)
	}
	for _, c := range comments {
		if err := s.repo.DeleteComment(ctx, c.ID); err != nil {
			return fmt.Errorf("deleting comment %s: %w", c.ID, err)
		}
	}
	if err := s.repo.DeleteCard(ctx, cardID); err != nil {
		return fmt.Errorf("deleting card %s: %w", cardID, err)
	}
	return nil
}

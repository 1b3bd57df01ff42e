package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/events"
	"github.com/sakif/kanban/internal/model"
)

func validCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperror.ValidationFailed("text", "comment text is required")
	}
	if len(text) > MaxTextLength {
		return "", apperror.ValidationFailed("text",
			fmt.Sprintf("comment text must be %d characters or less", MaxTextLength))
	}
	return text, nil
}

// resolveComment loads a comment and walks up to its board.
func (s *BoardService) resolveComment(ctx context.Context, commentID string) (*model.Comment, *model.Board, error) {
	comment, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return nil, nil, err
	}
	_, _, board, err := s.resolveCard(ctx, comment.CardID)
	if err != nil {
		return nil, nil, err
	}
	return comment, board, nil
}

func (s *BoardService) CreateComment(ctx context.Context, actor, cardID, text string) (*model.Comment, error) {
	text, err := validCommentText(text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, board, err := s.memberCard(ctx, actor, cardID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{CardID: cardID, UserID: actor, Text: text}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment created", slog.String("id", comment.ID), slog.String("cardID", cardID))
	s.publish(board.ID, actor, events.EntityComment, events.ActionCreated, comment.ID, comment)
	return comment, nil
}

// ListCardComments returns the card's comments in creation order.
func (s *BoardService) ListCardComments(ctx context.Context, actor, cardID string) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, _, err := s.memberCard(ctx, actor, cardID); err != nil {
		return nil, err
	}
	comments, err := s.repo.CommentsByCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("listing comments of card %s: %w", cardID, err)
	}
	return comments, nil
}

// ListVisibleComments returns every comment on every card of every board
// actor belongs to, oldest first.
func (s *BoardService) ListVisibleComments(ctx context.Context, actor string) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	boards, err := s.repo.ListBoardsForMember(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}

	out := []model.Comment{}
	for _, b := range boards {
		lists, err := s.repo.ListsByBoard(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("loading lists of board %s: %w", b.ID, err)
		}
		for _, l := range lists {
			cards, err := s.repo.CardsByList(ctx, l.ID)
			if err != nil {
				return nil, fmt.Errorf("loading cards of list %s: %w", l.ID, err)
			}
			for _, c := range cards {
				comments, err := s.repo.CommentsByCard(ctx, c.ID)
				if err != nil {
					return nil, fmt.Errorf("loading comments of card %s: %w", c.ID, err)
				}
				out = append(out, comments...)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *BoardService) GetComment(ctx context.Context, actor, commentID string) (*model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, board, err := s.resolveComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(board, actor, model.RoleMember, notMember); err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment is allowed only for the comment's author, who must still
// be a member of the board.
func (s *BoardService) UpdateComment(ctx context.Context, actor, commentID, text string) (*model.Comment, error) {
	text, err := validCommentText(text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	comment, board, err := s.resolveComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(board, actor, model.RoleMember, notMember); err != nil {
		return nil, err
	}
	if comment.UserID != actor {
		return nil, apperror.Forbidden("only the author can edit a comment")
	}

	comment.Text = text
	if err := s.repo.UpdateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("updating comment %s: %w", commentID, err)
	}

	s.publish(board.ID, actor, events.EntityComment, events.ActionUpdated, comment.ID, comment)
	return comment, nil
}

// DeleteComment is allowed for the author and for the board's owner and
// admins.
func (s *BoardService) DeleteComment(ctx context.Context, actor, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, board, err := s.resolveComment(ctx, commentID)
	if err != nil {
		return err
	}
	role, ok := board.MemberRole(actor)
	if !ok {
		return apperror.Forbidden(notMember)
	}
	if comment.UserID != actor && !role.AtLeast(model.RoleAdmin) {
		return apperror.Forbidden("only the author or a board admin can delete a comment")
	}

	if err := s.repo.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("deleting comment %s: %w", commentID, err)
	}

	s.logger.Info("comment deleted", slog.String("id", commentID))
	s.publish(board.ID, actor, events.EntityComment, events.ActionDeleted, commentID, nil)
	return nil
}

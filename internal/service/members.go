package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/events"
	"github.com/sakif/kanban/internal/model"
)

// grantableRole rejects roles that may not be handed out. There is exactly
// one owner per board and it is always the creator.
func grantableRole(role model.Role) error {
	if !role.Valid() {
		return apperror.ValidationFailed("role", "role must be one of admin, member")
	}
	if role == model.RoleOwner {
		return apperror.ValidationFailed("role", "the owner role cannot be granted")
	}
	return nil
}

// AddMember adds userID to the board. Owners and admins may add members;
// only the owner may add admins.
func (s *BoardService) AddMember(ctx context.Context, actor, boardID, userID string, role model.Role) (*model.Board, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "userId is required")
	}
	if role == "" {
		role = model.RoleMember
	}
	if err := grantableRole(role); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	min := model.RoleAdmin
	if role == model.RoleAdmin {
		min = model.RoleOwner
	}
	if err := authorize(board, actor, min, fmt.Sprintf("you cannot add members with role %s", role)); err != nil {
		return nil, err
	}
	if _, ok := board.MemberRole(userID); ok {
		return nil, apperror.Conflict("member", userID)
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	board.Members = append(board.Members, model.Member{UserID: userID, Role: role})
	if err := s.repo.UpdateBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("adding member to board %s: %w", boardID, err)
	}

	s.logger.Info("member added",
		slog.String("boardID", boardID),
		slog.String("userID", userID),
		slog.String("role", string(role)),
	)
	s.publish(boardID, actor, events.EntityMember, events.ActionCreated, userID, model.Member{UserID: userID, Role: role})
	return board, nil
}

// UpdateMemberRole is owner-only. The owner's own entry cannot change.
func (s *BoardService) UpdateMemberRole(ctx context.Context, actor, boardID, userID string, role model.Role) (*model.Board, error) {
	if err := grantableRole(role); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := authorize(board, actor, model.RoleOwner, "only the board owner can change roles"); err != nil {
		return nil, err
	}

	idx := -1
	for i, m := range board.Members {
		if m.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperror.NotFound("member", userID)
	}
	if board.Members[idx].Role == model.RoleOwner {
		return nil, apperror.Forbidden("the owner's role cannot be changed")
	}

	board.Members[idx].Role = role
	if err := s.repo.UpdateBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("updating member of board %s: %w", boardID, err)
	}

	s.publish(boardID, actor, events.EntityMember, events.ActionUpdated, userID, board.Members[idx])
	return board, nil
}

// RemoveMember lets owners and admins remove others, and any member
// remove themselves. The owner can never be removed.
func (s *BoardService) RemoveMember(ctx context.Context, actor, boardID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	actorRole, ok := board.MemberRole(actor)
	if !ok {
		return apperror.Forbidden(notMember)
	}
	targetRole, ok := board.MemberRole(userID)
	if !ok {
		return apperror.NotFound("member", userID)
	}
	if targetRole == model.RoleOwner {
		return apperror.Forbidden("the board owner cannot be removed")
	}
	if actor != userID {
		if !actorRole.AtLeast(model.RoleAdmin) {
			return apperror.Forbidden("only the board owner or an admin can remove members")
		}
		if targetRole == model.RoleAdmin && actorRole != model.RoleOwner {
			return apperror.Forbidden("only the board owner can remove an admin")
		}
	}

	kept := board.Members[:0]
	for _, m := range board.Members {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	board.Members = kept
	if err := s.repo.UpdateBoard(ctx, board); err != nil {
		return fmt.Errorf("removing member from board %s: %w", boardID, err)
	}

	s.logger.Info("member removed", slog.String("boardID", boardID), slog.String("userID", userID))
	s.publish(boardID, actor, events.EntityMember, events.ActionDeleted, userID, nil)
	s.events.CloseMember(boardID, userID)
	return nil
}

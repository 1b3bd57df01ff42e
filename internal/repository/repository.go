// Package repository declares the storage interfaces the services depend on.
//
// Two implementations exist: repository/memory (maps with parent-id
// indices, the default) and repository/sqlite. Services only ever see these
// interfaces, so the hierarchy rules are testable without a database or an
// HTTP layer.
//
// Conventions shared by every implementation:
//   - Create* assigns ID, CreatedAt and UpdatedAt on the passed pointer.
//   - Get*/Update*/Delete* return apperror.NotFound for unknown ids.
//   - Returned values are copies; mutating them never changes stored state.
//   - Child listings (ListsByBoard, CardsByList) are ordered by position,
//     then creation order.
package repository

import (
	"context"
	"time"

	"github.com/sakif/kanban/internal/model"
)

type UserRepository interface {
	// CreateUser returns apperror.Conflict if the username is taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	DeleteUser(ctx context.Context, id string) error
}

type BoardRepository interface {
	CreateBoard(ctx context.Context, board *model.Board) error
	GetBoard(ctx context.Context, id string) (*model.Board, error)
	// ListBoardsForMember returns boards whose member list contains userID.
	ListBoardsForMember(ctx context.Context, userID string) ([]model.Board, error)
	// UpdateBoard persists every field, including the member list.
	UpdateBoard(ctx context.Context, board *model.Board) error
	DeleteBoard(ctx context.Context, id string) error
}

type ListRepository interface {
	CreateList(ctx context.Context, list *model.List) error
	GetList(ctx context.Context, id string) (*model.List, error)
	ListsByBoard(ctx context.Context, boardID string) ([]model.List, error)
	CountListsByBoard(ctx context.Context, boardID string) (int, error)
	UpdateList(ctx context.Context, list *model.List) error
	DeleteList(ctx context.Context, id string) error
}

type CardRepository interface {
	CreateCard(ctx context.Context, card *model.Card) error
	GetCard(ctx context.Context, id string) (*model.Card, error)
	CardsByList(ctx context.Context, listID string) ([]model.Card, error)
	CountCardsByList(ctx context.Context, listID string) (int, error)
	UpdateCard(ctx context.Context, card *model.Card) error
	DeleteCard(ctx context.Context, id string) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	// CommentsByCard returns comments in creation order.
	CommentsByCard(ctx context.Context, cardID string) ([]model.Comment, error)
	UpdateComment(ctx context.Context, comment *model.Comment) error
	DeleteComment(ctx context.Context, id string) error
}

// RevocationRepository stores logged-out token fingerprints until the token
// would have expired anyway.
type RevocationRepository interface {
	// Revoke is idempotent: revoking twice keeps the later expiry.
	Revoke(ctx context.Context, fingerprint string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, fingerprint string) (bool, error)
	// PurgeRevoked deletes entries that expired at or before now and
	// returns how many were removed.
	PurgeRevoked(ctx context.Context, now time.Time) (int, error)
}

// HierarchyRepository is everything the board service needs: the four
// levels of the hierarchy plus user lookups for membership management.
type HierarchyRepository interface {
	BoardRepository
	ListRepository
	CardRepository
	CommentRepository
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Store is a complete backend. Both memory.Store and sqlite.DB satisfy it.
type Store interface {
	UserRepository
	BoardRepository
	ListRepository
	CardRepository
	CommentRepository
	RevocationRepository
}

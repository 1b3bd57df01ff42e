// Package service holds the business rules. Handlers call services;
// services call repositories.
//
//	Handler (HTTP) → AuthService  → UserRepository
//	               ↘ BoardService → HierarchyRepository
//
// Services validate input, enforce authorization and return apperror
// values. They know nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/auth"
	"github.com/sakif/kanban/internal/model"
	"github.com/sakif/kanban/internal/repository"
)

const (
	MaxUsernameLength = 64
	MinPasswordLength = 6
)

// AuthService owns registration, login and account management.
type AuthService struct {
	users     repository.UserRepository
	sessions  *auth.SessionAuthority
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	sessions *auth.SessionAuthority,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is what a successful login returns.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Register creates an account. The username must be unique.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// Login checks credentials and issues a session token. Unknown usernames
// and wrong passwords produce the same error; only the debug log tells
// them apart.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	invalid := apperror.Unauthenticated("invalid credentials")

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up user: %w", err)
		}
		s.passwords.CompareDummy(password)
		s.logger.Debug("login failed: unknown username", slog.String("username", username))
		return nil, invalid
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, fmt.Errorf("service/auth: verifying password: %w", err)
		}
		s.logger.Debug("login failed: wrong password", slog.String("userID", user.ID))
		return nil, invalid
	}

	token, exp, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Logout revokes the caller's token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	return nil
}

// ChangePassword lets a user replace their own password. actorID is the
// authenticated caller; userID is the account named in the request.
func (s *AuthService) ChangePassword(ctx context.Context, actorID, userID, current, next string) error {
	if current == "" {
		return apperror.ValidationFailed("currentPassword", "current password is required")
	}
	if next == "" {
		return apperror.ValidationFailed("newPassword", "new password is required")
	}
	if len(next) < MinPasswordLength {
		return apperror.ValidationFailed("newPassword",
			fmt.Sprintf("new password must be at least %d characters long", MinPasswordLength))
	}
	if len(next) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("newPassword",
			fmt.Sprintf("new password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	if actorID != userID {
		return apperror.Forbidden("you can only change your own password")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("password change rejected: wrong current password", slog.String("userID", userID))
			return apperror.Unauthenticated("current password is incorrect")
		}
		return fmt.Errorf("service/auth: verifying password: %w", err)
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}
	if err := s.users.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password: %w", err)
	}

	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}

// DeleteAccount removes the user and revokes the token used for the
// request. The user's other tokens stop verifying once the session
// authority runs its account check. Boards and cards the user owns are
// left in place.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, token string) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user deleted", slog.String("userID", userID))
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetUserByID(ctx, id)
}

// ListUsers returns every account. The password hash is never serialized.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: listing users: %w", err)
	}
	return users, nil
}

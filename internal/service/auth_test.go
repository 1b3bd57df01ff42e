package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/auth"
	"github.com/sakif/kanban/internal/model"
	"github.com/sakif/kanban/internal/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingUsers wraps the memory store and fails username lookups, to
// exercise the infrastructure-error path.
type failingUsers struct {
	*memory.Store
	err error
}

func (f *failingUsers) GetUserByUsername(context.Context, string) (*model.User, error) {
	return nil, f.err
}

type authFixture struct {
	svc      *AuthService
	store    *memory.Store
	sessions *auth.SessionAuthority
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := memory.New()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", "kanban-test", time.Hour)
	require.NoError(t, err)
	sessions := auth.NewSessionAuthority(tokens, store, testLogger(), time.Hour)
	svc := NewAuthService(store, sessions, auth.NewPasswordServiceForTest(), testLogger())
	return &authFixture{svc: svc, store: store, sessions: sessions}
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)

	u, err := f.svc.Register(context.Background(), "  alice ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "secret1", u.PasswordHash)
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)

	// A failed login and another user in between change nothing.
	_, _ = f.svc.Login(ctx, "alice", "wrong")
	_, err = f.svc.Register(ctx, "bob", "secret1")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "alice", "different")
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name, username, password, field string
	}{
		{"missing username", "", "secret1", "username"},
		{"blank username", "   ", "secret1", "username"},
		{"missing password", "alice", "", "password"},
		{"password over 72 bytes", "alice", strings.Repeat("x", 73), "password"},
		{"username too long", strings.Repeat("a", MaxUsernameLength+1), "secret1", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.username, tt.password)
			require.ErrorIs(t, err, apperror.ErrValidation)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

// =========================================================================
// LOGIN / LOGOUT
// =========================================================================

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, _ := f.svc.Register(ctx, "alice", "secret1")

	res, err := f.svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	claims, err := f.sessions.Verify(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestLogin_UniformFailure(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, _ = f.svc.Register(ctx, "alice", "secret1")

	_, errWrongPass := f.svc.Login(ctx, "alice", "nope")
	_, errNoUser := f.svc.Login(ctx, "mallory", "nope")

	require.ErrorIs(t, errWrongPass, apperror.ErrUnauthenticated)
	require.ErrorIs(t, errNoUser, apperror.ErrUnauthenticated)
	assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
}

func TestLogin_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), "", "x")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.svc.Login(context.Background(), "alice", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestLogin_RepositoryError(t *testing.T) {
	boom := errors.New("disk on fire")
	f := newAuthFixture(t)
	svc := NewAuthService(&failingUsers{Store: f.store, err: boom}, f.sessions,
		auth.NewPasswordServiceForTest(), testLogger())

	_, err := svc.Login(context.Background(), "alice", "secret1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, _ = f.svc.Register(ctx, "alice", "secret1")
	res, _ := f.svc.Login(ctx, "alice", "secret1")

	require.NoError(t, f.svc.Logout(ctx, res.Token))
	require.NoError(t, f.svc.Logout(ctx, res.Token))

	_, err := f.sessions.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, auth.ErrRevokedToken)
}

// =========================================================================
// ACCOUNT MANAGEMENT
// =========================================================================

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	alice, _ := f.svc.Register(ctx, "alice", "secret1")
	bob, _ := f.svc.Register(ctx, "bob", "secret1")

	tests := []struct {
		name          string
		actor, target string
		current, next string
		want          error
	}{
		{"missing current", alice.ID, alice.ID, "", "newpass", apperror.ErrValidation},
		{"missing new", alice.ID, alice.ID, "secret1", "", apperror.ErrValidation},
		{"new too short", alice.ID, alice.ID, "secret1", "abc", apperror.ErrValidation},
		{"other user", bob.ID, alice.ID, "secret1", "newpass", apperror.ErrForbidden},
		{"unknown user", "ghost", "ghost", "secret1", "newpass", apperror.ErrNotFound},
		{"wrong current", alice.ID, alice.ID, "nope", "newpass", apperror.ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.ChangePassword(ctx, tt.actor, tt.target, tt.current, tt.next)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	require.NoError(t, f.svc.ChangePassword(ctx, alice.ID, alice.ID, "secret1", "newpass"))
	_, err := f.svc.Login(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	_, err = f.svc.Login(ctx, "alice", "newpass")
	assert.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	alice, _ := f.svc.Register(ctx, "alice", "secret1")
	res, _ := f.svc.Login(ctx, "alice", "secret1")

	require.NoError(t, f.svc.DeleteAccount(ctx, alice.ID, res.Token))

	_, err := f.svc.GetUserByID(ctx, alice.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.sessions.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, auth.ErrRevokedToken)

	// The username is free again.
	_, err = f.svc.Register(ctx, "alice", "secret2")
	assert.NoError(t, err)
}

func TestListUsers(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, _ = f.svc.Register(ctx, "alice", "secret1")
	_, _ = f.svc.Register(ctx, "bob", "secret1")

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/kanban/internal/model"
	"github.com/sakif/kanban/internal/repository/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuthority(t *testing.T) (*SessionAuthority, *memory.Store) {
	t.Helper()
	store := memory.New()
	a := NewSessionAuthority(newTestTokenService(t), store, discardLogger(), time.Hour)
	return a, store
}

func TestVerify_States(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()

	token, _, err := a.Issue("alice")
	require.NoError(t, err)

	claims, err := a.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)

	_, err = a.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = a.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, a.Revoke(ctx, token))
	_, err = a.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestVerify_RevocationCheckedBeforeSignature(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()

	require.NoError(t, a.Revoke(ctx, "garbage"))
	_, err := a.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestVerify_AccountCheck(t *testing.T) {
	a, store := newTestAuthority(t)
	a.WithAccountCheck(store)
	ctx := context.Background()

	u := &model.User{Username: "alice", PasswordHash: "h"}
	require.NoError(t, store.CreateUser(ctx, u))
	first, _, err := a.Issue(u.ID)
	require.NoError(t, err)
	second, _, err := a.Issue(u.ID)
	require.NoError(t, err)

	_, err = a.Verify(ctx, second)
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser(ctx, u.ID))
	require.NoError(t, a.Revoke(ctx, first))

	_, err = a.Verify(ctx, first)
	assert.ErrorIs(t, err, ErrRevokedToken)
	_, err = a.Verify(ctx, second)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestRevoke_Idempotent(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()
	token, _, _ := a.Issue("alice")

	require.NoError(t, a.Revoke(ctx, token))
	require.NoError(t, a.Revoke(ctx, token))

	_, err := a.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestRevoke_DoesNotAffectOtherTokens(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()
	first, _, _ := a.Issue("alice")
	second, _, _ := a.Issue("alice")

	require.NoError(t, a.Revoke(ctx, first))

	_, err := a.Verify(ctx, second)
	assert.NoError(t, err)
}

func TestSweep_DropsOnlyExpiredEntries(t *testing.T) {
	a, store := newTestAuthority(t)
	ctx := context.Background()

	expired, _, _ := a.tokens.IssueWithDuration("alice", -time.Minute)
	live, _, _ := a.Issue("alice")
	require.NoError(t, a.Revoke(ctx, expired))
	require.NoError(t, a.Revoke(ctx, live))

	n, err := a.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gone, _ := store.IsRevoked(ctx, Fingerprint(expired))
	assert.False(t, gone)

	// The purged token is still rejected: it has expired.
	_, err = a.Verify(ctx, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = a.Verify(ctx, live)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestSweeper_RunsOnInterval(t *testing.T) {
	store := memory.New()
	a := NewSessionAuthority(newTestTokenService(t), store, discardLogger(), 10*time.Millisecond)
	ctx := context.Background()

	expired, _, _ := a.tokens.IssueWithDuration("alice", -time.Minute)
	require.NoError(t, a.Revoke(ctx, expired))

	a.Start()
	a.Start()
	defer a.Stop()

	assert.Eventually(t, func() bool {
		revoked, _ := store.IsRevoked(ctx, Fingerprint(expired))
		return !revoked
	}, time.Second, 10*time.Millisecond)
}

func TestStop_Idempotent(t *testing.T) {
	a, _ := newTestAuthority(t)
	a.Start()
	a.Stop()
	a.Stop()
}

func TestFingerprint(t *testing.T) {
	assert.Len(t, Fingerprint("x"), 64)
	assert.Equal(t, Fingerprint("abc"), Fingerprint("abc"))
	assert.NotEqual(t, Fingerprint("abc"), Fingerprint("abd"))
}

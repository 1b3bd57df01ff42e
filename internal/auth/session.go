package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/model"
	"github.com/sakif/kanban/internal/repository"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrRevokedToken = errors.New("token has been revoked")
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnknownAccount is returned for a well-formed token whose user has
	// since been deleted.
	ErrUnknownAccount = errors.New("account no longer exists")
)

// AccountLookup finds users by id. Verify uses it to turn away tokens that
// outlive their account.
type AccountLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Fingerprint is the key a token is stored under in the revocation set.
// Hashing keeps live bearer credentials out of the store.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SessionAuthority combines token signing with the revocation set.
//
// A token moves Issued → Valid → {Expired | Revoked}; both end states are
// final. Revoked entries are kept until the token's own expiry and then
// purged by a background sweeper, so the set stays bounded by the number
// of tokens issued within one TTL.
type SessionAuthority struct {
	tokens   *TokenService
	revoked  repository.RevocationRepository
	accounts AccountLookup
	logger   *slog.Logger
	interval time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewSessionAuthority(tokens *TokenService, revoked repository.RevocationRepository, logger *slog.Logger, sweepInterval time.Duration) *SessionAuthority {
	return &SessionAuthority{
		tokens:   tokens,
		revoked:  revoked,
		logger:   logger,
		interval: sweepInterval,
		done:     make(chan struct{}),
	}
}

// WithAccountCheck makes Verify also require that the token's user still
// exists. Deleting an account revokes only the token used for the request;
// this catches the account's other live tokens.
func (a *SessionAuthority) WithAccountCheck(accounts AccountLookup) *SessionAuthority {
	a.accounts = accounts
	return a
}

// Issue returns a fresh token for userID and its expiry.
func (a *SessionAuthority) Issue(userID string) (string, time.Time, error) {
	return a.tokens.Issue(userID)
}

// Verify rejects an empty token with ErrMissingToken, a logged-out token
// with ErrRevokedToken and anything that fails signature, issuer or expiry
// checks with ErrInvalidToken. Revocation is checked first: a revoked token
// is still correctly signed. With an account check configured, a valid
// token for a deleted user fails with ErrUnknownAccount.
func (a *SessionAuthority) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	revoked, err := a.revoked.IsRevoked(ctx, Fingerprint(token))
	if err != nil {
		return nil, fmt.Errorf("auth: checking revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}

	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	if a.accounts != nil {
		if _, err := a.accounts.GetUserByID(ctx, claims.UserID); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, ErrUnknownAccount
			}
			return nil, fmt.Errorf("auth: looking up account: %w", err)
		}
	}
	return claims, nil
}

// Revoke adds the token to the revocation set. Revoking twice is a no-op.
func (a *SessionAuthority) Revoke(ctx context.Context, token string) error {
	exp, ok := expiryOf(token)
	if !ok {
		// No readable expiry: keep the entry for a full TTL, which outlives
		// any token this service could have issued.
		exp = time.Now().Add(a.tokens.TTL())
	}
	if err := a.revoked.Revoke(ctx, Fingerprint(token), exp); err != nil {
		return fmt.Errorf("auth: revoking token: %w", err)
	}
	return nil
}

// Sweep purges revocation entries whose token has expired. Expired tokens
// fail Parse on their own, so dropping them changes no Verify outcome.
func (a *SessionAuthority) Sweep(ctx context.Context) (int, error) {
	n, err := a.revoked.PurgeRevoked(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("auth: purging revoked tokens: %w", err)
	}
	return n, nil
}

// Start launches the sweeper goroutine. Calling it more than once is safe.
func (a *SessionAuthority) Start() {
	a.startOnce.Do(func() {
		a.logger.Info("starting revocation sweeper", slog.Duration("interval", a.interval))
		a.wg.Add(1)
		go a.sweeper()
	})
}

// Stop halts the sweeper and waits for it to exit.
func (a *SessionAuthority) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
	})
	a.wg.Wait()
}

func (a *SessionAuthority) sweeper() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			n, err := a.Sweep(ctx)
			cancel()
			if err != nil {
				a.logger.Error("revocation sweep failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.logger.Debug("purged expired revocations", slog.Int("count", n))
			}
		}
	}
}

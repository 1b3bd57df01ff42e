package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", "kanban-test", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService_Validation(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		ttl     time.Duration
		wantErr bool
	}{
		{"short secret", "short", time.Hour, true},
		{"exactly 16 chars", "this-is-16-chars", time.Hour, false},
		{"zero ttl", "this-is-16-chars", 0, true},
		{"negative ttl", "this-is-16-chars", -time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenService(tt.secret, "kanban", tt.ttl)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTokenService() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIssue_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, exp, err := ts.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token %q does not look like a JWT", token)
	}
	if d := time.Until(exp); d < 59*time.Minute || d > time.Hour+time.Second {
		t.Errorf("expiry %v is not about one hour away", exp)
	}

	claims, err := ts.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", claims.UserID)
	}
	if claims.TokenID == "" {
		t.Error("TokenID is empty")
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, exp)
	}
}

func TestIssue_TokensAreUnique(t *testing.T) {
	ts := newTestTokenService(t)

	a, _, _ := ts.Issue("user-1")
	b, _, _ := ts.Issue("user-1")
	if a == b {
		t.Error("two tokens for the same user in the same second must differ")
	}
}

func TestParse_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	good, _, _ := ts.Issue("user-1")
	expired, _, _ := ts.IssueWithDuration("user-1", -time.Minute)

	other, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", "kanban-test", time.Hour)
	foreign, _, _ := other.Issue("user-1")

	otherIssuer, _ := NewTokenService("test-secret-at-least-16-chars!!", "someone-else", time.Hour)
	wrongIssuer, _, _ := otherIssuer.Issue("user-1")

	tests := map[string]string{
		"expired":      expired,
		"tampered":     good[:len(good)-4] + "AAAA",
		"wrong secret": foreign,
		"wrong issuer": wrongIssuer,
		"empty":        "",
		"garbage":      "not.a.jwt",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Parse(token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestExpiryOf(t *testing.T) {
	ts := newTestTokenService(t)
	token, exp, _ := ts.Issue("user-1")

	got, ok := expiryOf(token)
	if !ok || !got.Equal(exp) {
		t.Errorf("expiryOf() = %v, %v; want %v, true", got, ok, exp)
	}

	if _, ok := expiryOf("garbage"); ok {
		t.Error("expiryOf(garbage) should report false")
	}
}

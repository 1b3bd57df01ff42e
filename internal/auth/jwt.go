// Package auth issues, verifies and revokes session tokens and hashes
// passwords.
//
// SESSION FLOW:
//  1. POST /sessions checks the password and returns a signed token.
//  2. Clients send it back as "Authorization: Bearer <token>".
//  3. RequireAuth verifies the token and puts the user id in the request
//     context for handlers to read.
//  4. DELETE /sessions revokes the token before it expires.
//
// WHY JWT?
// The token itself says who the caller is and until when, and the HMAC
// signature means nobody without the secret can forge or edit it. Checking a
// request needs the secret, not a sessions table. The cost is that a signed
// token stays valid until exp unless something remembers to refuse it, which
// is what the revocation set in session.go is for.
//
// TOKEN LAYOUT (three base64url parts joined by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"iss":..., "sub":<user id>, "jti":<token id>, "iat":..., "exp":...}
//	- Signature: HMAC-SHA256(header + "." + payload, secret)
//
// The jti makes every issued token distinct, so two logins in the same second
// can be revoked independently. Nothing about a token is stored server-side
// except, after logout, its fingerprint in the revocation set.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// TokenService signs and parses JWTs with a shared HMAC secret.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenService returns an error when the secret is shorter than 16
// bytes; short HMAC keys are brute-forceable.
func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Claims is the verified content of a token.
type Claims struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TTL is how long issued tokens stay valid.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for userID that expires after the configured TTL.
func (s *TokenService) Issue(userID string) (string, time.Time, error) {
	return s.IssueWithDuration(userID, s.ttl)
}

// IssueWithDuration is Issue with an explicit lifetime. Tests use a
// negative duration to mint already-expired tokens.
func (s *TokenService) IssueWithDuration(userID string, d time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(d)

	rc := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        xid.New().String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, rc).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}
	// NumericDate has second precision; report what the token actually says.
	return signed, rc.ExpiresAt.Time, nil
}

// Parse checks signature, algorithm, issuer and expiry. Every failure wraps
// ErrInvalidToken.
func (s *TokenService) Parse(tokenStr string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &rc,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || rc.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	c := &Claims{UserID: rc.Subject, TokenID: rc.ID, ExpiresAt: rc.ExpiresAt.Time}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	return c, nil
}

// expiryOf reads the exp claim without verifying the signature. Used only
// to decide how long a revocation entry must be kept.
func expiryOf(tokenStr string) (time.Time, bool) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &rc); err != nil {
		return time.Time{}, false
	}
	if rc.ExpiresAt == nil {
		return time.Time{}, false
	}
	return rc.ExpiresAt.Time, true
}

// Password hashing for user accounts.
//
// WHY BCRYPT?
// A password hash has to be slow. A fast hash (MD5, SHA-256) lets an attacker
// who steals the users table try billions of guesses per second on a GPU.
// bcrypt is deliberately expensive, and the expense is tunable.
//
// Each bcrypt output carries everything needed to check it later:
//   - a random per-password salt, so equal passwords hash differently
//   - the cost the hash was made with, so old hashes keep verifying after
//     DefaultCost is raised
//
// Output layout:
//
//	$2a$12$<22-char salt><31-char hash>
//	    ^^
//	    cost: 2^12 key-expansion rounds
//
// bcrypt only reads the first 72 bytes of its input. Two passwords that
// share a 72-byte prefix would hash the same, so Hash refuses longer input.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used in production.
//
// COST TUNING:
// Each step up doubles the work. Aim for roughly 250ms per hash on the
// production host. Lower makes offline cracking cheap; higher makes every
// login and registration slow and lets a burst of logins pin the CPU. The
// login rate limiter bounds the second problem but not the first.
const DefaultCost = 12

// MaxPasswordBytes is bcrypt's input limit. Longer inputs are rejected
// rather than silently truncated.
const MaxPasswordBytes = 72

var ErrPasswordMismatch = errors.New("auth: invalid password")

type PasswordService struct {
	cost  int
	dummy []byte
}

// NewPasswordService returns a hasher with the given bcrypt cost. Values
// outside bcrypt's range fall back to DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	// Hashed once up front so CompareDummy costs the same as a real check.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	return &PasswordService{cost: cost, dummy: dummy}
}

// NewPasswordServiceForTest uses bcrypt.MinCost so tests stay fast.
func NewPasswordServiceForTest() *PasswordService {
	return NewPasswordService(bcrypt.MinCost)
}

func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns ErrPasswordMismatch when plaintext does not match hash.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// CompareDummy burns the same time as Verify. Login calls it for unknown
// usernames so response timing does not reveal which usernames exist.
func (p *PasswordService) CompareDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(plaintext))
}

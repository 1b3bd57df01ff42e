package sqlite

import (
	"context"
	"fmt"
	"time"
)

// Revoke upserts the fingerprint, keeping whichever expiry is later.
func (db *DB) Revoke(ctx context.Context, fingerprint string, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO revoked_tokens (fingerprint, expires_at) VALUES (?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE
		 SET expires_at = MAX(expires_at, excluded.expires_at)`,
		fingerprint, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking token: %w", err)
	}
	return nil
}

func (db *DB) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE fingerprint = ?`, fingerprint).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking revocation: %w", err)
	}
	return n > 0, nil
}

func (db *DB) PurgeRevoked(ctx context.Context, now time.Time) (int, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging revoked tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return int(n), nil
}

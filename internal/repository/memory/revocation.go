package memory

import (
	"context"
	"time"
)

func (s *Store) Revoke(_ context.Context, fingerprint string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.revoked[fingerprint]; !ok || expiresAt.After(prev) {
		s.revoked[fingerprint] = expiresAt
	}
	return nil
}

func (s *Store) IsRevoked(_ context.Context, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revoked[fingerprint]
	return ok, nil
}

func (s *Store) PurgeRevoked(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for fp, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, fp)
			purged++
		}
	}
	return purged, nil
}

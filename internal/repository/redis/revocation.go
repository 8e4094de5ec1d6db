package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "oakmirror:revoked:"

// RevocationStore implements repository.RevocationStore on Redis. Keys are
// the SHA-256 of the token so raw tokens never reach the cache.
type RevocationStore struct {
	client goredis.UniversalClient
}

// NewRevocationStore creates a Redis-backed revocation store.
func NewRevocationStore(client goredis.UniversalClient) *RevocationStore {
	return &RevocationStore{client: client}
}

// Revoke records token for ttl. A non-positive ttl means the token has
// already expired and nothing is stored.
func (s *RevocationStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Consume atomically marks token as used for ttl. It reports false when the
// token was already consumed or revoked, so at most one caller wins a given
// token. A non-positive ttl stores nothing and always wins.
func (s *RevocationStore) Consume(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	ok, err := s.client.SetNX(ctx, key(token), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return ok, nil
}

// Release clears any revocation recorded for token.
func (s *RevocationStore) Release(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("release token: %w", err)
	}
	return nil
}

func key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// NoopRevocationStore never revokes. Tokens then live until they expire.
type NoopRevocationStore struct{}

func (NoopRevocationStore) Revoke(context.Context, string, time.Duration) error { return nil }

func (NoopRevocationStore) Consume(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (NoopRevocationStore) Release(context.Context, string) error { return nil }

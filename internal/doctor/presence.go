package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "oncall:"

	// Presence entries expire on their own so a crashed instance cannot
	// leave a doctor marked on call forever.
	presenceTTL = 12 * time.Hour
)

// RedisPresenceStore keeps on-call presence in Redis so other instances and
// the public directory can observe it without touching the database.
type RedisPresenceStore struct {
	client *redis.Client
}

// NewRedisPresenceStore creates a presence store backed by the given client
func NewRedisPresenceStore(client *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{client: client}
}

func presenceKey(doctorID string) string {
	return fmt.Sprintf("%s%s", presenceKeyPrefix, doctorID)
}

// SetOnline marks a doctor as available on call
func (s *RedisPresenceStore) SetOnline(ctx context.Context, doctorID string) error {
	return s.client.Set(ctx, presenceKey(doctorID), "1", presenceTTL).Err()
}

// SetOffline clears a doctor's on-call presence
func (s *RedisPresenceStore) SetOffline(ctx context.Context, doctorID string) error {
	return s.client.Del(ctx, presenceKey(doctorID)).Err()
}

// IsOnline reports whether a doctor is currently marked on call
func (s *RedisPresenceStore) IsOnline(ctx context.Context, doctorID string) (bool, error) {
	n, err := s.client.Exists(ctx, presenceKey(doctorID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisAttemptStore keeps pending login attempts in Redis so the login flow
// survives process restarts and works behind multiple replicas. TTL handling
// is delegated to Redis key expiry.
type redisAttemptStore struct {
	client redis.UniversalClient
}

func newRedisAttemptStore(client redis.UniversalClient) *redisAttemptStore {
	return &redisAttemptStore{client: client}
}

func attemptKey(state string) string {
	return "login_attempt:" + state
}

func (s *redisAttemptStore) Save(ctx context.Context, state string, att loginAttempt, ttl time.Duration) error {
	payload, err := json.Marshal(att)
	if err != nil {
		return fmt.Errorf("marshal login attempt: %w", err)
	}
	if err := s.client.Set(ctx, attemptKey(state), payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist login attempt: %w", err)
	}
	return nil
}

// Consume uses GETDEL so the state value cannot be replayed even with
// concurrent callbacks racing on the same key.
func (s *redisAttemptStore) Consume(ctx context.Context, state string) (*loginAttempt, error) {
	bytes, err := s.client.GetDel(ctx, attemptKey(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load login attempt: %w", err)
	}
	var att loginAttempt
	if err := json.Unmarshal(bytes, &att); err != nil {
		return nil, fmt.Errorf("decode login attempt: %w", err)
	}
	return &att, nil
}

// Package session stores pending OAuth sessions in Redis, keyed by state
// nonce and expired automatically.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shopify-sales-insights/internal/domain"
	"shopify-sales-insights/internal/ports"
)

const sessionTTL = 10 * time.Minute

// RedisSessionStore implements ports.SessionStore on Redis.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a session store backed by the given client.
func NewRedisSessionStore(client *redis.Client) ports.SessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(state string) string {
	return "oauth:session:" + state
}

// SaveSession stores the session under its state nonce with a 10-minute TTL.
func (s *RedisSessionStore) SaveSession(ctx context.Context, sess *domain.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.State), payload, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession returns the session for state, or (nil, nil) when absent or
// expired.
func (s *RedisSessionStore) GetSession(ctx context.Context, state string) (*domain.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes the session; deleting an absent session is not an
// error.
func (s *RedisSessionStore) DeleteSession(ctx context.Context, state string) error {
	if err := s.client.Del(ctx, sessionKey(state)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

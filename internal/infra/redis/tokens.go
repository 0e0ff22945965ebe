// Package redis keeps auth sessions and reset tokens in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NOTMORSE-PROG/vocanova/internal/auth"
)

type TokenStore struct {
	client *redis.Client
	prefix string
}

// NewTokenStore namespaces every key with prefix.
func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	return &TokenStore{client: client, prefix: prefix}
}

func (s *TokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", auth.ErrTokenNotFound
		}
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

func (s *TokenStore) Take(ctx context.Context, key string) (string, error) {
	val, err := s.client.GetDel(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", auth.ErrTokenNotFound
		}
		return "", fmt.Errorf("take %s: %w", key, err)
	}
	return val, nil
}

func (s *TokenStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, s.prefix+key, ttl).Result()
	if err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	if !ok {
		return auth.ErrTokenNotFound
	}
	return nil
}

func (s *TokenStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

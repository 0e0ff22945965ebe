package memory

import (
	"context"
	"sync"
	"time"

	"github.com/NOTMORSE-PROG/vocanova/internal/auth"
)

type token struct {
	value     string
	expiresAt time.Time
}

// TokenStore is an in-process auth.TokenStore with lazy expiry.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]token
	now    func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]token),
		now:    time.Now,
	}
}

func (s *TokenStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = token{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *TokenStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.live(key)
	if !ok {
		return "", auth.ErrTokenNotFound
	}
	return t.value, nil
}

func (s *TokenStore) Take(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.live(key)
	if !ok {
		return "", auth.ErrTokenNotFound
	}
	delete(s.tokens, key)
	return t.value, nil
}

func (s *TokenStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.live(key)
	if !ok {
		return auth.ErrTokenNotFound
	}
	t.expiresAt = s.now().Add(ttl)
	s.tokens[key] = t
	return nil
}

func (s *TokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, key)
	return nil
}

// live must be called with mu held.
func (s *TokenStore) live(key string) (token, bool) {
	t, ok := s.tokens[key]
	if !ok {
		return token{}, false
	}
	if !s.now().Before(t.expiresAt) {
		delete(s.tokens, key)
		return token{}, false
	}
	return t, true
}

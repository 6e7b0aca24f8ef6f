package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/token"
)

// TokenStore keeps vendor tokens in redis so they survive restarts.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore returns redis-backed token store. Zero ttl keeps keys forever.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

func (s *TokenStore) key(k string) string {
	return fmt.Sprintf("hub:tokens:%s", k)
}

// Save stores token.
func (s *TokenStore) Save(ctx context.Context, key string, t token.Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, s.ttl).Err()
}

// Get returns stored token or token.ErrNoToken.
func (s *TokenStore) Get(ctx context.Context, key string) (token.Token, error) {
	result, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return token.Token{}, token.ErrNoToken
	}
	if err != nil {
		return token.Token{}, err
	}
	var t token.Token
	if err := json.Unmarshal([]byte(result), &t); err != nil {
		return token.Token{}, err
	}
	return t, nil
}

// Delete removes stored token.
func (s *TokenStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

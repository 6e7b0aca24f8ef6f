package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/token"
)

func TestTokenStoreKey(t *testing.T) {
	s := NewTokenStore(nil, 0)
	assert.Equal(t, "hub:tokens:mybmw:user@example.com", s.key("mybmw:user@example.com"))
}

func TestTokenStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	s := NewTokenStore(client, time.Hour)

	ctx := context.Background()
	assert.Error(t, s.Save(ctx, "k", token.Token{AccessToken: "a"}))
	_, err := s.Get(ctx, "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, token.ErrNoToken)
}

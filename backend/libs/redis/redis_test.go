package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmptyAddrDisabled(t *testing.T) {
	_, err := NewRedisClient(context.Background(), Options{Addr: " "})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestOptionsDefaults(t *testing.T) {
	ro := Options{Addr: " cache:6379 ", DB: 2, ReadTimeout: time.Second}.client()
	assert.Equal(t, "cache:6379", ro.Addr)
	assert.Equal(t, 2, ro.DB)
	assert.Equal(t, 5*time.Second, ro.DialTimeout)
	assert.Equal(t, time.Second, ro.ReadTimeout)
	assert.Equal(t, 3*time.Second, ro.WriteTimeout)
}

package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmptyDSNDisabled(t *testing.T) {
	_, err := NewPostgresDB(context.Background(), "  ", PoolOptions{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestPoolDefaults(t *testing.T) {
	assert.Equal(t, DefaultPool(), PoolOptions{}.withDefaults())

	p := PoolOptions{MaxOpenConns: 1, MaxIdleConns: 4, ConnMaxLifetime: time.Minute}.withDefaults()
	assert.Equal(t, 1, p.MaxOpenConns)
	assert.Equal(t, 1, p.MaxIdleConns)
	assert.Equal(t, time.Minute, p.ConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, p.ConnMaxIdleTime)
}

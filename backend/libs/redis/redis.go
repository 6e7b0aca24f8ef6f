package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDisabled is returned when no address is configured.
var ErrDisabled = errors.New("redis: disabled")

// Options selects the redis server holding hub state. Zero timeouts use defaults.
type Options struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (o Options) client() *redis.Options {
	dial, read, write := o.DialTimeout, o.ReadTimeout, o.WriteTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	if read <= 0 {
		read = 3 * time.Second
	}
	if write <= 0 {
		write = 3 * time.Second
	}
	return &redis.Options{
		Addr:         strings.TrimSpace(o.Addr),
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  dial,
		ReadTimeout:  read,
		WriteTimeout: write,
	}
}

// NewRedisClient connects and checks the server with PING. An empty address yields ErrDisabled.
func NewRedisClient(ctx context.Context, opts Options) (*redis.Client, error) {
	ro := opts.client()
	if ro.Addr == "" {
		return nil, ErrDisabled
	}

	client := redis.NewClient(ro)
	pingCtx, cancel := context.WithTimeout(ctx, ro.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

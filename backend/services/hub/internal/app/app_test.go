package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/config"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/token"
)

func TestAppWithoutSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "secret"
	cfg.HTTP.Port = "0"
	cfg.Things = []config.ThingConfig{
		{UID: "unknown:device:one", Label: "Unknown"},
		{UID: "pegelonline:station:bad"},
	}

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.db)
	assert.Nil(t, a.redis)
	assert.Nil(t, a.influx)
	assert.Nil(t, a.publisher)
	assert.Equal(t, []string{"mercedesme", "mybmw", "pegelonline", "solarforecast"}, a.manager.Bindings())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	assert.Eventually(t, func() bool {
		st, err := a.registry.Status("unknown:device:one")
		return err == nil && st.Detail == thing.DetailConfigurationError
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		st, err := a.registry.Status("pegelonline:station:bad")
		return err == nil && st.Detail == thing.DetailConfigurationError
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestTokenStoreFallsBackToMemory(t *testing.T) {
	a := &App{logger: zap.NewNop()}
	store, err := a.tokenStore(context.Background(), config.Default())
	require.NoError(t, err)
	assert.IsType(t, &token.MemoryStore{}, store)
}

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/db"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

func TestFromEvent(t *testing.T) {
	now := time.Date(2022, 7, 17, 16, 23, 0, 0, time.UTC)
	s, ok := FromEvent(thing.Event{
		Type:    thing.EventState,
		Thing:   "pegelonline:station:giessen",
		Channel: "pegelonline:station:giessen:measure",
		Kind:    thing.KindQuantity,
		Value:   "238 cm",
		Time:    now,
	})
	require.True(t, ok)
	assert.Equal(t, "238 cm", s.Value)
	assert.Equal(t, now, s.UpdatedAt)

	_, ok = FromEvent(thing.Event{Type: thing.EventStatus, Thing: "pegelonline:station:giessen"})
	assert.False(t, ok)
}

func TestRestore(t *testing.T) {
	reg := thing.NewRegistry(nil)
	uid, err := thing.ParseUID("pegelonline:station:giessen")
	require.NoError(t, err)
	reg.Add(thing.Thing{UID: uid})

	var events int
	reg.AddListener(thing.ListenerFunc(func(thing.Event) { events++ }))

	n := Restore([]StoredState{
		{Channel: "pegelonline:station:giessen:measure", Kind: thing.KindQuantity, Value: "238 cm"},
		{Channel: "pegelonline:station:giessen:trend", Kind: "bogus", Value: "x"},
		{Channel: "broken", Kind: thing.KindString, Value: "x"},
	}, reg, zap.NewNop())
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, events)

	st, ok := reg.State(thing.NewChannelUID("pegelonline:station:giessen", "", "measure"))
	require.True(t, ok)
	assert.Equal(t, "238 cm", st.String())
}

func TestHandleEventDropsWhenFull(t *testing.T) {
	r := NewStateRepository(nil, zap.NewNop())
	for i := 0; i < cap(r.queue)+10; i++ {
		r.HandleEvent(thing.Event{Type: thing.EventState, Channel: "a:b:c:d"})
	}
	r.HandleEvent(thing.Event{Type: thing.EventStatus})
	assert.Len(t, r.queue, cap(r.queue))
}

// Runs against a real database when HUB_TEST_DSN is set.
func TestStateRepositoryPostgres(t *testing.T) {
	dsn := os.Getenv("HUB_TEST_DSN")
	if dsn == "" {
		t.Skip("HUB_TEST_DSN not set")
	}
	sqlDB, err := db.NewPostgresDB(context.Background(), dsn, db.DefaultPool())
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx := context.Background()
	r := NewStateRepository(sqlDB, zap.NewNop())
	require.NoError(t, r.EnsureSchema(ctx))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.Upsert(ctx, StoredState{Channel: "test:t:x:c", Thing: "test:t:x", Kind: thing.KindString, Value: "a", UpdatedAt: now}))
	require.NoError(t, r.Upsert(ctx, StoredState{Channel: "test:t:x:c", Thing: "test:t:x", Kind: thing.KindString, Value: "b", UpdatedAt: now}))

	states, err := r.List(ctx)
	require.NoError(t, err)
	var found bool
	for _, s := range states {
		if s.Channel == "test:t:x:c" {
			found = true
			assert.Equal(t, "b", s.Value)
		}
	}
	assert.True(t, found)
}

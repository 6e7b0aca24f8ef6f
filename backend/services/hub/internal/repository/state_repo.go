package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

const writeTimeout = 5 * time.Second

// StoredState is a persisted channel state.
type StoredState struct {
	Channel   string
	Thing     string
	Kind      string
	Value     string
	UpdatedAt time.Time
}

// StateRepository persists the last state of every channel.
type StateRepository struct {
	db     *sql.DB
	queue  chan thing.Event
	logger *zap.Logger
}

// NewStateRepository returns repository. Events are written by Run.
func NewStateRepository(db *sql.DB, logger *zap.Logger) *StateRepository {
	return &StateRepository{db: db, queue: make(chan thing.Event, 256), logger: logger}
}

// EnsureSchema creates the channel_states table.
func (r *StateRepository) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS channel_states (
			channel_uid TEXT PRIMARY KEY,
			thing_uid   TEXT NOT NULL,
			kind        TEXT NOT NULL,
			value       TEXT NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create channel_states: %w", err)
	}
	return nil
}

// Upsert stores one channel state.
func (r *StateRepository) Upsert(ctx context.Context, s StoredState) error {
	const query = `
		INSERT INTO channel_states (channel_uid, thing_uid, kind, value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel_uid) DO UPDATE
		SET kind = EXCLUDED.kind, value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, s.Channel, s.Thing, s.Kind, s.Value, s.UpdatedAt)
	return err
}

// List returns all persisted states.
func (r *StateRepository) List(ctx context.Context) ([]StoredState, error) {
	const query = `
		SELECT channel_uid, thing_uid, kind, value, updated_at
		FROM channel_states
		ORDER BY channel_uid
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StoredState
	for rows.Next() {
		var s StoredState
		if err := rows.Scan(&s.Channel, &s.Thing, &s.Kind, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// RestoreInto loads persisted states into the registry without emitting events.
func (r *StateRepository) RestoreInto(ctx context.Context, registry *thing.Registry) (int, error) {
	states, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	return Restore(states, registry, r.logger), nil
}

// Restore applies stored states to the registry and returns how many were applied.
func Restore(states []StoredState, registry *thing.Registry, logger *zap.Logger) int {
	restored := 0
	for _, s := range states {
		channel, err := thing.ParseChannelUID(s.Channel)
		if err != nil {
			logger.Warn("skipping stored state", zap.String("channel", s.Channel), zap.Error(err))
			continue
		}
		st, err := thing.ParseState(s.Kind, s.Value)
		if err != nil {
			logger.Warn("skipping stored state", zap.String("channel", s.Channel), zap.Error(err))
			continue
		}
		registry.Restore(channel, st)
		restored++
	}
	return restored
}

// FromEvent converts a state event, false for other events.
func FromEvent(ev thing.Event) (StoredState, bool) {
	if ev.Type != thing.EventState || ev.Channel == "" {
		return StoredState{}, false
	}
	return StoredState{
		Channel:   ev.Channel,
		Thing:     ev.Thing,
		Kind:      ev.Kind,
		Value:     ev.Value,
		UpdatedAt: ev.Time,
	}, true
}

// HandleEvent enqueues state events, dropping them when the writer falls behind.
func (r *StateRepository) HandleEvent(ev thing.Event) {
	if ev.Type != thing.EventState {
		return
	}
	select {
	case r.queue <- ev:
	default:
		r.logger.Warn("dropping state write, queue full", zap.String("channel", ev.Channel))
	}
}

// Run writes queued events until ctx is done.
func (r *StateRepository) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.queue:
			s, ok := FromEvent(ev)
			if !ok {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			if err := r.Upsert(writeCtx, s); err != nil {
				r.logger.Warn("failed to persist state", zap.String("channel", s.Channel), zap.Error(err))
			}
			cancel()
		}
	}
}

package pegelonline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Binding and thing type identifiers.
const (
	BindingID   = "pegelonline"
	StationType = "station"
)

// Channel identifiers.
const (
	ChannelMeasure            = "measure"
	ChannelTrend              = "trend"
	ChannelTimestamp          = "timestamp"
	ChannelLevel              = "level"
	ChannelWarningLevels      = "warning-levels"
	ChannelActualWarningLevel = "actual-warning-level"
)

// Handler polls the current measurement of one station.
type Handler struct {
	thing     thing.Thing
	uid       string
	client    *Client
	callback  thing.Callback
	scheduler *scheduler.Scheduler
	logger    *zap.Logger

	cfg    Config
	cancel context.CancelFunc
	job    scheduler.Job

	mu    sync.Mutex
	cache *Measure
}

// NewHandler builds station handler.
func NewHandler(t thing.Thing, client *Client, callback thing.Callback, sched *scheduler.Scheduler, logger *zap.Logger) *Handler {
	return &Handler{
		thing:     t,
		uid:       t.UID.String(),
		client:    client,
		callback:  callback,
		scheduler: sched,
		logger:    logger,
	}
}

// Initialize validates config and starts polling.
func (h *Handler) Initialize(ctx context.Context) {
	cfg := DefaultConfig()
	if err := thing.DecodeConfig(h.thing.Config, &cfg); err != nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	h.cfg = cfg
	h.callback.UpdateStatus(h.uid, thing.StatusUnknown, thing.DetailNone, "")

	pollCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.job = h.scheduler.Every(h.uid, cfg.Interval(), func() { h.measure(pollCtx) })
}

// Dispose stops polling.
func (h *Handler) Dispose() {
	if h.job != nil {
		h.job.Cancel()
		h.job = nil
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// HandleCommand republishes the cached measure on refresh.
func (h *Handler) HandleCommand(_ context.Context, channel thing.ChannelUID, cmd thing.Command) {
	if _, ok := cmd.(thing.RefreshType); !ok {
		return
	}
	h.mu.Lock()
	m := h.cache
	h.mu.Unlock()
	if m == nil {
		return
	}
	for id, st := range h.states(*m) {
		if id == channel.ID {
			h.callback.UpdateState(thing.NewChannelUID(h.uid, "", id), st)
		}
	}
}

func (h *Handler) measure(ctx context.Context) {
	m, err := h.client.CurrentMeasure(ctx, h.cfg.UUID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		h.logger.Warn("failed to fetch measure", zap.Error(err))
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailCommunicationError, err.Error())
		return
	}
	h.mu.Lock()
	h.cache = m
	h.mu.Unlock()

	for id, st := range h.states(*m) {
		h.callback.UpdateState(thing.NewChannelUID(h.uid, "", id), st)
	}
	h.logger.Debug("measure updated", zap.Float64("value", m.Value), zap.String("timestamp", m.Timestamp))
	h.callback.UpdateStatus(h.uid, thing.StatusOnline, thing.DetailNone, "")
}

func (h *Handler) states(m Measure) map[string]thing.State {
	var ts thing.State = thing.Undef
	if t, err := m.Time(); err == nil {
		ts = thing.DateTime(t)
	}
	return map[string]thing.State{
		ChannelMeasure:            thing.NewQuantity(m.Value, thing.UnitCentimetre),
		ChannelTrend:              thing.String(m.TrendName()),
		ChannelTimestamp:          ts,
		ChannelLevel:              thing.String(m.Level()),
		ChannelWarningLevels:      thing.Decimal(h.cfg.WarningLevels()),
		ChannelActualWarningLevel: thing.Decimal(h.cfg.ActualWarningLevel(m.Value)),
	}
}

package solarforecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Binding, thing type and channel identifiers.
const (
	BindingID = "solarforecast"
	SiteType  = "multi"
	PlaneType = "part"

	ChannelActual    = "actual"
	ChannelRemaining = "remaining"
	ChannelToday     = "today"
	ChannelTomorrow  = "tomorrow"
	ChannelRaw       = "raw"
)

// PlaneHandler fetches and publishes the forecast of one plane.
type PlaneHandler struct {
	thing    thing.Thing
	uid      string
	client   *Client
	callback thing.Callback
	logger   *zap.Logger
	bridge   thing.Handler

	cfg  PlaneConfig
	site *SiteHandler

	mu       sync.Mutex
	forecast *Forecast
	fetched  time.Time
}

// NewPlaneHandler builds plane handler.
func NewPlaneHandler(t thing.Thing, bridge thing.Handler, client *Client, callback thing.Callback, logger *zap.Logger) *PlaneHandler {
	return &PlaneHandler{
		thing:    t,
		uid:      t.UID.String(),
		client:   client,
		callback: callback,
		logger:   logger,
		bridge:   bridge,
	}
}

// Initialize validates config and registers at the site.
func (h *PlaneHandler) Initialize(_ context.Context) {
	cfg := DefaultPlaneConfig()
	if err := thing.DecodeConfig(h.thing.Config, &cfg); err != nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	h.cfg = cfg
	site, ok := h.bridge.(*SiteHandler)
	if !ok {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailBridgeOffline, "site bridge missing")
		return
	}
	h.site = site
	site.AddPlane(h)
	h.callback.UpdateStatus(h.uid, thing.StatusUnknown, thing.DetailNone, "")
}

// Dispose unregisters from the site.
func (h *PlaneHandler) Dispose() {
	if h.site != nil {
		h.site.RemovePlane(h)
		h.site = nil
	}
}

// HandleCommand republishes the cached forecast on refresh.
func (h *PlaneHandler) HandleCommand(_ context.Context, _ thing.ChannelUID, cmd thing.Command) {
	if _, ok := cmd.(thing.RefreshType); !ok {
		return
	}
	h.mu.Lock()
	f := h.forecast
	h.mu.Unlock()
	if f != nil {
		h.publish(f, time.Now().In(f.built.Location()))
	}
}

// Update refetches the forecast when it is stale and publishes the plane channels.
func (h *PlaneHandler) Update(ctx context.Context, now time.Time, loc thing.Point, apiKey string) *Forecast {
	h.mu.Lock()
	f := h.forecast
	stale := f == nil || now.Sub(h.fetched) >= h.cfg.Interval() || !f.IsValid(now)
	h.mu.Unlock()

	if stale {
		fresh, err := h.fetch(ctx, now, loc, apiKey)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				h.logger.Warn("failed to fetch forecast", zap.Error(err))
				h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailCommunicationError, err.Error())
			}
		} else {
			f = fresh
			h.callback.UpdateStatus(h.uid, thing.StatusOnline, thing.DetailNone, "")
		}
	}
	if f == nil {
		return nil
	}
	h.publish(f, now)
	return f
}

func (h *PlaneHandler) fetch(ctx context.Context, now time.Time, loc thing.Point, apiKey string) (*Forecast, error) {
	body, err := h.client.Estimate(ctx, apiKey, loc, h.cfg)
	if err != nil {
		return nil, err
	}
	f, err := NewForecast(body, now)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.forecast = f
	h.fetched = now
	h.mu.Unlock()
	h.logger.Debug("forecast fetched", zap.Float64("today_kwh", f.DayTotal(now, 0)))
	return f, nil
}

func (h *PlaneHandler) publish(f *Forecast, now time.Time) {
	h.callback.UpdateState(h.channel(ChannelActual), StateOf(f.ActualValue(now)))
	h.callback.UpdateState(h.channel(ChannelRemaining), StateOf(f.RemainingProduction(now)))
	h.callback.UpdateState(h.channel(ChannelToday), StateOf(f.DayTotal(now, 0)))
	h.callback.UpdateState(h.channel(ChannelTomorrow), StateOf(f.DayTotal(now, 1)))
	h.callback.UpdateState(h.channel(ChannelRaw), thing.String(f.Raw()))
}

func (h *PlaneHandler) channel(id string) thing.ChannelUID {
	return thing.NewChannelUID(h.uid, "", id)
}

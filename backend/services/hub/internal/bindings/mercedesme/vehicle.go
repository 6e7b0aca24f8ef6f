package mercedesme

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/httpclient"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// ErrNoData is returned when a container has no content for the vehicle.
var ErrNoData = errors.New("mercedesme: no data")

// VehicleClient reads vehicle data containers.
type VehicleClient struct {
	base *httpclient.BaseClient
}

// NewVehicleClient builds client for the vehicle data API.
func NewVehicleClient(baseURL string, doer httpclient.HTTPDoer) *VehicleClient {
	return &VehicleClient{base: httpclient.NewBaseClient(baseURL, doer)}
}

// Container fetches one container. 204 yields ErrNoData.
func (c *VehicleClient) Container(ctx context.Context, accessToken, vin, container string) (Container, error) {
	resp, err := c.base.Get(ctx, fmt.Sprintf("/vehicles/%s/containers/%s", vin, container), nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
		"Accept":        httpclient.ContentTypeJSON,
	})
	if err != nil {
		return Container{}, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return Container{}, ErrNoData
	}
	if err := resp.Err(container); err != nil {
		return Container{}, err
	}
	return ParseContainer(resp.Body)
}

// VehicleHandler polls the containers of one vehicle.
type VehicleHandler struct {
	thing     thing.Thing
	uid       string
	bridge    thing.Handler
	client    *VehicleClient
	callback  thing.Callback
	scheduler *scheduler.Scheduler
	logger    *zap.Logger

	cfg     VehicleConfig
	account *AccountHandler
	cancel  context.CancelFunc
	job     scheduler.Job

	mu         sync.Mutex
	cache      map[string]ChannelStateMap
	lastUpdate time.Time
}

// NewVehicleHandler builds vehicle handler.
func NewVehicleHandler(t thing.Thing, bridge thing.Handler, client *VehicleClient, callback thing.Callback,
	sched *scheduler.Scheduler, logger *zap.Logger) *VehicleHandler {
	return &VehicleHandler{
		thing:     t,
		uid:       t.UID.String(),
		bridge:    bridge,
		client:    client,
		callback:  callback,
		scheduler: sched,
		logger:    logger,
		cache:     make(map[string]ChannelStateMap),
	}
}

// Initialize validates config and starts polling.
func (h *VehicleHandler) Initialize(ctx context.Context) {
	cfg := DefaultVehicleConfig()
	if err := thing.DecodeConfig(h.thing.Config, &cfg); err != nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	account, ok := h.bridge.(*AccountHandler)
	if !ok {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailBridgeOffline, "account bridge not available")
		return
	}
	h.cfg = cfg
	h.account = account
	h.callback.UpdateStatus(h.uid, thing.StatusUnknown, thing.DetailNone, "")

	pollCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.job = h.scheduler.Every(h.uid, cfg.Interval(), func() { h.Update(pollCtx) })
}

// Dispose stops polling.
func (h *VehicleHandler) Dispose() {
	if h.job != nil {
		h.job.Cancel()
		h.job = nil
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// HandleCommand republishes cached states on refresh.
func (h *VehicleHandler) HandleCommand(_ context.Context, channel thing.ChannelUID, cmd thing.Command) {
	if _, ok := cmd.(thing.RefreshType); !ok {
		return
	}
	h.mu.Lock()
	cached, ok := h.cache[channel.IDWithGroup()]
	last := h.lastUpdate
	h.mu.Unlock()
	switch {
	case ok:
		h.callback.UpdateState(channel, cached.State)
	case channel.Group == GroupRange && channel.ID == ChannelLastUpdate && !last.IsZero():
		h.callback.UpdateState(channel, thing.DateTime(last))
	}
}

// Update polls every container enabled for the vehicle type.
func (h *VehicleHandler) Update(ctx context.Context) {
	accessToken, err := h.account.AccessToken(ctx)
	if err != nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailBridgeOffline, err.Error())
		return
	}
	var (
		fetched int
		lastErr error
	)
	for _, name := range h.account.Config().Containers(h.thing.UID.Type) {
		c, err := h.client.Container(ctx, accessToken, h.cfg.VIN, name)
		if errors.Is(err, ErrNoData) {
			h.logger.Debug("container without data", zap.String("container", name))
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Warn("container request failed", zap.String("container", name), zap.Error(err))
			lastErr = err
			continue
		}
		fetched++
		h.publish(c)
	}
	if fetched == 0 && lastErr != nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailCommunicationError, lastErr.Error())
		return
	}
	h.callback.UpdateStatus(h.uid, thing.StatusOnline, thing.DetailNone, "")
}

func (h *VehicleHandler) publish(c Container) {
	h.mu.Lock()
	for _, m := range c.States {
		h.cache[m.Group+"#"+m.Channel] = m
	}
	newer := c.Newest.After(h.lastUpdate)
	if newer {
		h.lastUpdate = c.Newest
	}
	h.mu.Unlock()

	for _, m := range c.States {
		h.callback.UpdateState(thing.NewChannelUID(h.uid, m.Group, m.Channel), m.State)
	}
	if newer {
		h.callback.UpdateState(thing.NewChannelUID(h.uid, GroupRange, ChannelLastUpdate), thing.DateTime(c.Newest))
	}
}

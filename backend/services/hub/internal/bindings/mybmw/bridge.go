package mybmw

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/token"
)

// DiscoveryDelay postpones the first vehicle request after the bridge comes up.
const DiscoveryDelay = 2 * time.Second

// BridgeHandler owns the account proxy and discovers vehicles of all brands.
type BridgeHandler struct {
	thing     thing.Thing
	uid       string
	callback  thing.Callback
	scheduler *scheduler.Scheduler
	tokens    token.Store
	zone      *time.Location
	language  string
	opts      []ProxyOption
	logger    *zap.Logger

	mu     sync.RWMutex
	proxy  *Proxy
	cancel context.CancelFunc
	job    scheduler.Job
}

// NewBridgeHandler builds account handler. language is used when the thing configures none.
func NewBridgeHandler(t thing.Thing, callback thing.Callback, sched *scheduler.Scheduler, tokens token.Store,
	zone *time.Location, language string, logger *zap.Logger, opts ...ProxyOption) *BridgeHandler {
	return &BridgeHandler{
		thing:     t,
		uid:       t.UID.String(),
		callback:  callback,
		scheduler: sched,
		tokens:    tokens,
		zone:      zone,
		language:  language,
		opts:      opts,
		logger:    logger,
	}
}

// Proxy returns the account proxy, nil before a successful Initialize.
func (b *BridgeHandler) Proxy() *Proxy {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.proxy
}

// Initialize validates credentials and schedules vehicle discovery.
func (b *BridgeHandler) Initialize(ctx context.Context) {
	cfg := AccountConfig{Region: RegionRestOfWorld}
	if err := thing.DecodeConfig(b.thing.Config, &cfg); err != nil {
		b.callback.UpdateStatus(b.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		b.callback.UpdateStatus(b.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	if cfg.Language == "" {
		cfg.Language = b.language
	}
	b.callback.UpdateStatus(b.uid, thing.StatusUnknown, thing.DetailNone, "")

	discoverCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.proxy = NewProxy(cfg, b.tokens, b.zone, b.logger, b.opts...)
	b.cancel = cancel
	b.job = b.scheduler.Once(b.uid, DiscoveryDelay, func() { b.Discover(discoverCtx) })
	b.mu.Unlock()
}

// Dispose cancels a pending discovery.
func (b *BridgeHandler) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.job != nil {
		b.job.Cancel()
		b.job = nil
	}
	if b.cancel != nil {
		b.cancel()
	}
}

// HandleCommand is a no-op, the account has no channels.
func (b *BridgeHandler) HandleCommand(context.Context, thing.ChannelUID, thing.Command) {}

// Discover requests the vehicles of all brands and reports each one.
func (b *BridgeHandler) Discover(ctx context.Context) {
	proxy := b.Proxy()
	if proxy == nil {
		return
	}
	var (
		all     []Vehicle
		lastErr error
	)
	for _, brand := range AllBrands {
		vehicles, err := proxy.RequestVehicles(ctx, brand)
		if err != nil {
			lastErr = err
			continue
		}
		all = append(all, vehicles...)
	}
	if len(all) == 0 && lastErr != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		b.logger.Warn("vehicle discovery failed", zap.Error(lastErr))
		b.callback.UpdateStatus(b.uid, thing.StatusOffline, thing.DetailCommunicationError, lastErr.Error())
		return
	}
	b.callback.UpdateStatus(b.uid, thing.StatusOnline, thing.DetailNone, "")
	b.logger.Debug("vehicle fingerprint", zap.String("fingerprint", AnonymousFingerprint(all)))
	for _, v := range all {
		b.callback.ThingDiscovered(b.Result(v))
	}
}

// Result builds the discovery result for a vehicle of this account.
func (b *BridgeHandler) Result(v Vehicle) thing.DiscoveryResult {
	uid := thing.UID{Binding: BindingID, Type: v.ThingType(), Bridge: []string{b.thing.UID.ID}, ID: v.VIN}
	return thing.DiscoveryResult{
		ThingUID:  uid.String(),
		BridgeUID: b.uid,
		Label:     v.Brand + " " + v.Model,
		Properties: map[string]string{
			"vin":          v.VIN,
			"vehicleBrand": v.Brand,
			"driveTrain":   v.DriveTrain,
			"modelYear":    strconv.Itoa(v.Year),
		},
		RepresentationProperty: "vin",
	}
}

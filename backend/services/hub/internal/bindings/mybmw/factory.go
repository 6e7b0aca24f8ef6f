package mybmw

import (
	"time"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/logging"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/token"
)

// Factory creates account and vehicle handlers.
type Factory struct {
	callback  thing.Callback
	scheduler *scheduler.Scheduler
	tokens    token.Store
	zone      *time.Location
	language  string
	opts      []ProxyOption
	logger    *zap.Logger
}

// NewFactory builds factory. opts are passed to every account proxy.
func NewFactory(callback thing.Callback, sched *scheduler.Scheduler, tokens token.Store, zone *time.Location,
	language string, logger *zap.Logger, opts ...ProxyOption) *Factory {
	return &Factory{
		callback:  callback,
		scheduler: sched,
		tokens:    tokens,
		zone:      zone,
		language:  language,
		opts:      opts,
		logger:    logger,
	}
}

// Binding returns binding id.
func (f *Factory) Binding() string { return BindingID }

// CreateHandler creates handler for an account or vehicle thing.
func (f *Factory) CreateHandler(t thing.Thing, bridge thing.Handler) (thing.Handler, error) {
	logger := logging.ForBinding(f.logger, BindingID, t.UID.String())
	switch t.UID.Type {
	case AccountType:
		return NewBridgeHandler(t, f.callback, f.scheduler, f.tokens, f.zone, f.language, logger, f.opts...), nil
	case TypeConventional, TypePluginHybrid, TypeElectricREX, TypeElectric:
		return NewVehicleHandler(t, bridge, f.callback, f.scheduler, logger), nil
	default:
		return nil, thing.ErrUnsupportedType
	}
}

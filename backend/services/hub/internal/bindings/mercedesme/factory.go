package mercedesme

import (
	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/httpclient"
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
	endpoints Endpoints
	doer      httpclient.HTTPDoer
	vehicles  *VehicleClient
	logger    *zap.Logger
}

// NewFactory builds factory.
func NewFactory(callback thing.Callback, sched *scheduler.Scheduler, tokens token.Store, endpoints Endpoints,
	doer httpclient.HTTPDoer, logger *zap.Logger) *Factory {
	return &Factory{
		callback:  callback,
		scheduler: sched,
		tokens:    tokens,
		endpoints: endpoints,
		doer:      doer,
		vehicles:  NewVehicleClient(endpoints.VehicleData, doer),
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
		return NewAccountHandler(t, f.callback, f.scheduler, f.tokens, f.endpoints, f.doer, logger), nil
	case TypeBEV, TypeComb, TypeHybrid:
		return NewVehicleHandler(t, bridge, f.vehicles, f.callback, f.scheduler, logger), nil
	default:
		return nil, thing.ErrUnsupportedType
	}
}

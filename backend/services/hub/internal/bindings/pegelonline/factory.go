package pegelonline

import (
	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/logging"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Factory creates station handlers.
type Factory struct {
	client    *Client
	callback  thing.Callback
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

// NewFactory builds factory.
func NewFactory(client *Client, callback thing.Callback, sched *scheduler.Scheduler, logger *zap.Logger) *Factory {
	return &Factory{client: client, callback: callback, scheduler: sched, logger: logger}
}

// Binding returns binding id.
func (f *Factory) Binding() string { return BindingID }

// CreateHandler creates handler for a station thing.
func (f *Factory) CreateHandler(t thing.Thing, _ thing.Handler) (thing.Handler, error) {
	if t.UID.Type != StationType {
		return nil, thing.ErrUnsupportedType
	}
	return NewHandler(t, f.client, f.callback, f.scheduler, logging.ForBinding(f.logger, BindingID, t.UID.String())), nil
}

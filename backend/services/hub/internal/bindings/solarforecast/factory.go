package solarforecast

import (
	"time"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/logging"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Factory creates site and plane handlers.
type Factory struct {
	client    *Client
	callback  thing.Callback
	scheduler *scheduler.Scheduler
	home      thing.Point
	zone      *time.Location
	logger    *zap.Logger
}

// NewFactory builds factory. home is used for AUTODETECT sites, zone for reading forecast
// timestamps.
func NewFactory(client *Client, callback thing.Callback, sched *scheduler.Scheduler, home thing.Point,
	zone *time.Location, logger *zap.Logger) *Factory {
	return &Factory{client: client, callback: callback, scheduler: sched, home: home, zone: zone, logger: logger}
}

// Binding returns binding id.
func (f *Factory) Binding() string { return BindingID }

// CreateHandler creates handler for site or plane things.
func (f *Factory) CreateHandler(t thing.Thing, bridge thing.Handler) (thing.Handler, error) {
	logger := logging.ForBinding(f.logger, BindingID, t.UID.String())
	switch t.UID.Type {
	case SiteType:
		return NewSiteHandler(t, f.callback, f.scheduler, f.home, f.zone, logger), nil
	case PlaneType:
		return NewPlaneHandler(t, bridge, f.client, f.callback, logger), nil
	default:
		return nil, thing.ErrUnsupportedType
	}
}

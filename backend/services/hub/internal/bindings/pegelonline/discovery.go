package pegelonline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/convert"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// DiscoveryRadiusKm limits discovery to stations near the hub.
const DiscoveryRadiusKm = 50

// Discovery reports stations around the hub location.
type Discovery struct {
	client   *Client
	callback thing.Callback
	home     thing.Point
	logger   *zap.Logger
}

// NewDiscovery builds discovery service.
func NewDiscovery(client *Client, callback thing.Callback, home thing.Point, logger *zap.Logger) *Discovery {
	return &Discovery{client: client, callback: callback, home: home, logger: logger}
}

// StartScan fetches all stations and reports the ones in range.
func (d *Discovery) StartScan(ctx context.Context) error {
	stations, err := d.client.Stations(ctx)
	if err != nil {
		return fmt.Errorf("pegelonline discovery: %w", err)
	}
	found := 0
	for _, s := range stations {
		if convert.DistanceKm(d.home.Lat, d.home.Lon, s.Latitude, s.Longitude) < DiscoveryRadiusKm {
			d.callback.ThingDiscovered(Result(s))
			found++
		}
	}
	d.logger.Info("station scan finished", zap.Int("stations", len(stations)), zap.Int("in_range", found))
	return nil
}

// Result builds the discovery result for a station.
func Result(s Station) thing.DiscoveryResult {
	uid := thing.UID{Binding: BindingID, Type: StationType, ID: s.UUID}
	return thing.DiscoveryResult{
		ThingUID: uid.String(),
		Label:    "Pegel Messstelle " + convert.TitleCase(s.ShortName) + " / " + convert.TitleCase(s.Water.ShortName),
		Properties: map[string]string{
			"agency":   s.Agency,
			"km":       fmt.Sprint(s.Km),
			"river":    s.Water.LongName,
			"station":  s.LongName,
			"uuid":     s.UUID,
			"location": fmt.Sprintf("%v,%v", s.Latitude, s.Longitude),
		},
		RepresentationProperty: "uuid",
	}
}

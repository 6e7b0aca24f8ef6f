package solarforecast

import (
	"errors"
	"strings"
	"time"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Autodetect takes the location from the hub settings.
const Autodetect = "AUTODETECT"

// SiteConfig configures the forecast.solar site bridge.
type SiteConfig struct {
	Location               string `yaml:"location"`
	ChannelRefreshInterval int    `yaml:"channelRefreshInterval"`
	APIKey                 string `yaml:"apiKey"`
}

// DefaultSiteConfig returns defaults.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{Location: Autodetect, ChannelRefreshInterval: 1}
}

// ResolveLocation returns the configured point, or home for AUTODETECT.
func (c SiteConfig) ResolveLocation(home thing.Point) (thing.Point, error) {
	if c.Location == "" || strings.EqualFold(c.Location, Autodetect) {
		return home, nil
	}
	return thing.ParsePoint(c.Location)
}

// Interval returns the channel refresh interval.
func (c SiteConfig) Interval() time.Duration {
	if c.ChannelRefreshInterval <= 0 {
		return time.Minute
	}
	return time.Duration(c.ChannelRefreshInterval) * time.Minute
}

// PlaneConfig configures one panel plane.
type PlaneConfig struct {
	Declination     int     `yaml:"declination"`
	Azimuth         int     `yaml:"azimuth"`
	KWP             float64 `yaml:"kwp"`
	RefreshInterval int     `yaml:"refreshInterval"`
}

// DefaultPlaneConfig returns defaults that fail validation until set.
func DefaultPlaneConfig() PlaneConfig {
	return PlaneConfig{Declination: -1, Azimuth: 360, RefreshInterval: 30}
}

// Validate checks plane geometry.
func (c PlaneConfig) Validate() error {
	if c.Declination < 0 || c.Declination > 90 {
		return errors.New("declination must be between 0 and 90")
	}
	if c.Azimuth < -180 || c.Azimuth > 180 {
		return errors.New("azimuth must be between -180 and 180")
	}
	if c.KWP <= 0 {
		return errors.New("kwp must be positive")
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	return nil
}

// Interval returns the refetch interval.
func (c PlaneConfig) Interval() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Minute
}

package mybmw

import (
	"errors"
	"strings"
	"time"
)

// AccountConfig configures the account bridge.
type AccountConfig struct {
	UserName string `yaml:"userName"`
	Password string `yaml:"password"`
	Region   string `yaml:"region"`
	Language string `yaml:"language"`
}

// Validate checks credentials and region. Only regions with an API key are supported.
func (c AccountConfig) Validate() error {
	if c.UserName == "" || c.Password == "" {
		return errors.New("user name and password required")
	}
	if _, ok := EadraxServers[c.Region]; !ok {
		return errors.New("unknown region " + c.Region)
	}
	if _, ok := APIMKeys[c.Region]; !ok {
		return errors.New("unsupported region " + c.Region)
	}
	return nil
}

// VehicleConfig configures one vehicle.
type VehicleConfig struct {
	VIN             string `yaml:"vin"`
	VehicleBrand    string `yaml:"vehicleBrand"`
	RefreshInterval int    `yaml:"refreshInterval"`
}

// DefaultVehicleConfig returns defaults.
func DefaultVehicleConfig() VehicleConfig {
	return VehicleConfig{VehicleBrand: BrandBMW, RefreshInterval: 5}
}

// Validate checks vin and interval.
func (c VehicleConfig) Validate() error {
	if c.VIN == "" {
		return errors.New("vin missing")
	}
	if _, ok := UserAgents[strings.ToLower(c.VehicleBrand)]; !ok {
		return errors.New("unknown brand " + c.VehicleBrand)
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	return nil
}

// Interval returns the polling interval.
func (c VehicleConfig) Interval() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Minute
}

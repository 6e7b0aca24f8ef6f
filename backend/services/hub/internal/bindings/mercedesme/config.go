package mercedesme

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AccountConfig configures the account bridge.
type AccountConfig struct {
	ClientID        string `yaml:"clientId"`
	ClientSecret    string `yaml:"clientSecret"`
	CallbackIP      string `yaml:"callbackIP"`
	CallbackPort    int    `yaml:"callbackPort"`
	OdoScope        bool   `yaml:"odoScope"`
	VehicleScope    bool   `yaml:"vehicleScope"`
	LockScope       bool   `yaml:"lockScope"`
	FuelScope       bool   `yaml:"fuelScope"`
	EVScope         bool   `yaml:"evScope"`
	RefreshInterval int    `yaml:"refreshInterval"`
}

// DefaultAccountConfig enables all scopes.
func DefaultAccountConfig() AccountConfig {
	return AccountConfig{
		CallbackPort:    8090,
		OdoScope:        true,
		VehicleScope:    true,
		LockScope:       true,
		FuelScope:       true,
		EVScope:         true,
		RefreshInterval: 15,
	}
}

// Validate checks client credentials and the callback address.
func (c AccountConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("client id and secret required")
	}
	if c.CallbackIP == "" {
		return errors.New("callback ip missing")
	}
	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		return fmt.Errorf("invalid callback port %d", c.CallbackPort)
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	return nil
}

// Interval returns the token check interval.
func (c AccountConfig) Interval() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Minute
}

// CallbackURL is the redirect URI registered with the vendor.
func (c AccountConfig) CallbackURL() string {
	return fmt.Sprintf("http://%s:%d%s", c.CallbackIP, c.CallbackPort, CallbackPath)
}

// Scope renders the requested scopes.
func (c AccountConfig) Scope() string {
	scopes := []string{ScopeOffline}
	if c.OdoScope {
		scopes = append(scopes, ScopeOdo)
	}
	if c.VehicleScope {
		scopes = append(scopes, ScopeVehicle)
	}
	if c.LockScope {
		scopes = append(scopes, ScopeLock)
	}
	if c.FuelScope {
		scopes = append(scopes, ScopeFuel)
	}
	if c.EVScope {
		scopes = append(scopes, ScopeEV)
	}
	return strings.Join(scopes, " ")
}

// Containers lists the data containers a vehicle type may poll with these scopes.
func (c AccountConfig) Containers(vehicleType string) []string {
	var result []string
	if c.OdoScope {
		result = append(result, ContainerOdo)
	}
	if c.EVScope && (vehicleType == TypeBEV || vehicleType == TypeHybrid) {
		result = append(result, ContainerEV)
	}
	if c.FuelScope && (vehicleType == TypeComb || vehicleType == TypeHybrid) {
		result = append(result, ContainerFuel)
	}
	if c.LockScope {
		result = append(result, ContainerLock)
	}
	if c.VehicleScope {
		result = append(result, ContainerVehicle)
	}
	return result
}

// VehicleConfig configures one vehicle.
type VehicleConfig struct {
	VIN             string `yaml:"vin"`
	RefreshInterval int    `yaml:"refreshInterval"`
}

// DefaultVehicleConfig returns defaults.
func DefaultVehicleConfig() VehicleConfig {
	return VehicleConfig{RefreshInterval: 5}
}

// Validate checks vin and interval.
func (c VehicleConfig) Validate() error {
	if c.VIN == "" {
		return errors.New("vin missing")
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

// Endpoints groups the vendor URLs.
type Endpoints struct {
	Authorize   string
	Token       string
	VehicleData string
}

// DefaultEndpoints returns the production URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{Authorize: AuthorizeURL, Token: TokenURL, VehicleData: VehicleDataURL}
}

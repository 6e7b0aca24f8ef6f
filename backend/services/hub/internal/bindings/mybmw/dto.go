package mybmw

import (
	"encoding/json"
	"fmt"
)

// AuthQueryResponse is returned by the OAuth config endpoint.
type AuthQueryResponse struct {
	ClientName    string   `json:"clientName"`
	ClientSecret  string   `json:"clientSecret"`
	ClientID      string   `json:"clientId"`
	GCDMBaseURL   string   `json:"gcdmBaseUrl"`
	ReturnURL     string   `json:"returnUrl"`
	Brand         string   `json:"brand"`
	Language      string   `json:"language"`
	Country       string   `json:"country"`
	AuthEndpoint  string   `json:"authorizationEndpoint"`
	TokenEndpoint string   `json:"tokenEndpoint"`
	Scopes        []string `json:"scopes"`
	PromptValues  []string `json:"promptValues"`
}

// AuthResponse is returned by the token endpoint.
type AuthResponse struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Distance with units, e.g. KILOMETERS or MILES.
type Distance struct {
	Value int    `json:"value"`
	Units string `json:"units"`
}

// Range of one drive train.
type Range struct {
	Distance *Distance `json:"distance"`
}

// Mileage of the vehicle.
type Mileage struct {
	Mileage int    `json:"mileage"`
	Units   string `json:"units"`
}

// Coordinates of the vehicle.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Address of the vehicle location.
type Address struct {
	Formatted string `json:"formatted"`
}

// Location of the vehicle.
type Location struct {
	Coordinates *Coordinates `json:"coordinates"`
	Address     *Address     `json:"address,omitempty"`
	Heading     int          `json:"heading"`
}

// CBS is a condition based service entry.
type CBS struct {
	Type     string    `json:"type"`
	Status   string    `json:"status"`
	DateTime string    `json:"dateTime,omitempty"`
	Distance *Distance `json:"distance,omitempty"`
}

// CCMMessage is a check control message.
type CCMMessage struct {
	Title           string `json:"title"`
	LongDescription string `json:"longDescription"`
	State           string `json:"state"`
}

// Doors lists door states.
type Doors struct {
	DriverFront    string `json:"driverFront"`
	DriverRear     string `json:"driverRear"`
	PassengerFront string `json:"passengerFront"`
	PassengerRear  string `json:"passengerRear"`
}

// Windows lists window states.
type Windows struct {
	DriverFront    string `json:"driverFront"`
	DriverRear     string `json:"driverRear"`
	PassengerFront string `json:"passengerFront"`
	PassengerRear  string `json:"passengerRear"`
}

// DoorsWindows groups all openings.
type DoorsWindows struct {
	Doors    Doors   `json:"doors"`
	Windows  Windows `json:"windows"`
	Trunk    string  `json:"trunk"`
	Hood     string  `json:"hood"`
	Moonroof string  `json:"moonroof"`
}

// ChargingState of electric vehicles.
type ChargingState struct {
	ChargePercentage   int    `json:"chargePercentage"`
	State              string `json:"state"`
	Type               string `json:"type"`
	IsChargerConnected bool   `json:"isChargerConnected"`
}

// FuelLevel in litres.
type FuelLevel struct {
	Value int    `json:"value"`
	Units string `json:"units"`
}

// TireStatus holds pressures in kPa.
type TireStatus struct {
	CurrentPressure float64 `json:"currentPressure"`
	TargetPressure  float64 `json:"targetPressure"`
}

// Tire wraps a tire status.
type Tire struct {
	Status TireStatus `json:"status"`
}

// Tires of the vehicle.
type Tires struct {
	FrontLeft  Tire `json:"frontLeft"`
	FrontRight Tire `json:"frontRight"`
	RearLeft   Tire `json:"rearLeft"`
	RearRight  Tire `json:"rearRight"`
}

// Properties carry most vehicle state.
type Properties struct {
	LastUpdatedAt    string        `json:"lastUpdatedAt"`
	AreDoorsLocked   bool          `json:"areDoorsLocked"`
	AreDoorsClosed   bool          `json:"areDoorsClosed"`
	AreWindowsClosed bool          `json:"areWindowsClosed"`
	DoorsAndWindows  DoorsWindows  `json:"doorsAndWindows"`
	ElectricRange    *Range        `json:"electricRange,omitempty"`
	CombustionRange  *Range        `json:"combustionRange,omitempty"`
	CombinedRange    *Range        `json:"combinedRange,omitempty"`
	ChargingState    ChargingState `json:"chargingState"`
	FuelLevel        FuelLevel     `json:"fuelLevel"`
	VehicleLocation  *Location     `json:"vehicleLocation,omitempty"`
	ServiceRequired  []CBS         `json:"serviceRequired"`
	Tires            *Tires        `json:"tires,omitempty"`
}

// Status carries mileage and check control data.
type Status struct {
	CurrentMileage                   *Mileage     `json:"currentMileage,omitempty"`
	CheckControlMessages             []CCMMessage `json:"checkControlMessages"`
	CheckControlMessagesGeneralState string       `json:"checkControlMessagesGeneralState"`
}

// Vehicle is one entry of the vehicles response.
type Vehicle struct {
	VIN        string     `json:"vin"`
	Model      string     `json:"model"`
	Brand      string     `json:"brand"`
	DriveTrain string     `json:"driveTrain"`
	Year       int        `json:"year"`
	Properties Properties `json:"properties"`
	Status     Status     `json:"status"`
}

// ParseVehicles decodes the vehicles response.
func ParseVehicles(data []byte) ([]Vehicle, error) {
	var vehicles []Vehicle
	if err := json.Unmarshal(data, &vehicles); err != nil {
		return nil, fmt.Errorf("decode vehicles: %w", err)
	}
	return vehicles, nil
}

// FindVehicle returns the consistent vehicle with vin.
func FindVehicle(vehicles []Vehicle, vin string) (Vehicle, bool) {
	for _, v := range vehicles {
		if v.VIN == vin {
			return Consistent(v), true
		}
	}
	return Vehicle{}, false
}

// Consistent fills mileage, combustion range and location with -1 sentinels when missing.
func Consistent(v Vehicle) Vehicle {
	if v.Status.CurrentMileage == nil {
		v.Status.CurrentMileage = &Mileage{Mileage: -1, Units: "km"}
	}
	if v.Properties.CombustionRange == nil || v.Properties.CombustionRange.Distance == nil {
		v.Properties.CombustionRange = &Range{Distance: &Distance{Value: -1, Units: KilometersJSON}}
	}
	if v.Properties.ElectricRange == nil || v.Properties.ElectricRange.Distance == nil {
		v.Properties.ElectricRange = &Range{Distance: &Distance{Value: -1, Units: KilometersJSON}}
	}
	if v.Properties.VehicleLocation == nil || v.Properties.VehicleLocation.Coordinates == nil {
		v.Properties.VehicleLocation = &Location{
			Heading:     -1,
			Coordinates: &Coordinates{Latitude: -1.234, Longitude: -9.876},
		}
	}
	return v
}

// ThingType derives the thing type from the drive train.
func (v Vehicle) ThingType() string {
	switch v.DriveTrain {
	case "ELECTRIC":
		return TypeElectric
	case "ELECTRIC_WITH_RANGE_EXTENDER":
		return TypeElectricREX
	case "PLUGIN_HYBRID":
		return TypePluginHybrid
	default:
		return TypeConventional
	}
}

// AnonymousFingerprint renders the vehicle list with vin and location masked.
func AnonymousFingerprint(vehicles []Vehicle) string {
	masked := make([]Vehicle, len(vehicles))
	for i, v := range vehicles {
		v.VIN = Anonymous
		if loc := v.Properties.VehicleLocation; loc != nil {
			c := *loc
			if c.Address != nil {
				c.Address = &Address{Formatted: Anonymous}
			}
			if c.Coordinates != nil {
				c.Coordinates = &Coordinates{Latitude: 1.234, Longitude: 9.876}
			}
			v.Properties.VehicleLocation = &c
		}
		masked[i] = v
	}
	data, err := json.Marshal(masked)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

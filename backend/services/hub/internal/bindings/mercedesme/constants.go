package mercedesme

// Binding and thing type identifiers.
const (
	BindingID   = "mercedesme"
	AccountType = "account"

	TypeBEV    = "bev"
	TypeComb   = "comb"
	TypeHybrid = "hybrid"
)

// Vendor endpoints.
const (
	AuthorizeURL   = "https://id.mercedes-benz.com/as/authorization.oauth2"
	TokenURL       = "https://id.mercedes-benz.com/as/token.oauth2"
	VehicleDataURL = "https://api.mercedes-benz.com/vehicledata/v2"

	CallbackPath = "/mb-auth"
	ParamCode    = "code"
)

// OAuth scopes.
const (
	ScopeOffline = "offline_access"
	ScopeOdo     = "mb:vehicle:mbdata:payasyoudrive"
	ScopeVehicle = "mb:vehicle:mbdata:vehiclestatus"
	ScopeLock    = "mb:vehicle:mbdata:vehiclelock"
	ScopeFuel    = "mb:vehicle:mbdata:fuelstatus"
	ScopeEV      = "mb:vehicle:mbdata:evstatus"
)

// Vehicle data containers.
const (
	ContainerOdo     = "payasyoudrive"
	ContainerEV      = "electricvehicle"
	ContainerFuel    = "fuelstatus"
	ContainerLock    = "vehiclelockstatus"
	ContainerVehicle = "vehiclestatus"
)

// Channel groups.
const (
	GroupRange    = "range"
	GroupLock     = "lock"
	GroupLocation = "location"
	GroupDoors    = "doors"
	GroupWindows  = "windows"
	GroupLights   = "lights"
)

// Channel identifiers.
const (
	ChannelMileage       = "mileage"
	ChannelRangeElectric = "range-electric"
	ChannelSOC           = "soc"
	ChannelRangeFuel     = "range-fuel"
	ChannelFuelLevel     = "fuel-level"
	ChannelLastUpdate    = "last-update"

	ChannelDoorsLock = "doors"
	ChannelDeckLid   = "deck-lid"
	ChannelFlap      = "flap"

	ChannelHeading = "heading"

	ChannelDriverFront    = "driver-front"
	ChannelPassengerFront = "passenger-front"
	ChannelDriverRear     = "driver-rear"
	ChannelPassengerRear  = "passenger-rear"
	ChannelRooftop        = "rooftop"
	ChannelSunroof        = "sunroof"

	ChannelInteriorFront = "interior-front"
	ChannelInteriorRear  = "interior-rear"
	ChannelReadingLeft   = "reading-left"
	ChannelReadingRight  = "reading-right"
	ChannelLightSwitch   = "light-switch"
)

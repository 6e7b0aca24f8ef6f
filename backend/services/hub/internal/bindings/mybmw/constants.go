package mybmw

// Binding and thing type identifiers.
const (
	BindingID   = "mybmw"
	AccountType = "account"

	TypeConventional = "conv"
	TypePluginHybrid = "phev"
	TypeElectricREX  = "bev_rex"
	TypeElectric     = "bev"
)

// Regions.
const (
	RegionRestOfWorld  = "ROW"
	RegionNorthAmerica = "NORTH_AMERICA"
	RegionChina        = "CHINA"
)

// Brands.
const (
	BrandBMW  = "bmw"
	BrandMini = "mini"
)

// AllBrands are queried by the account bridge.
var AllBrands = []string{BrandBMW, BrandMini}

// EadraxServers maps region to API host.
var EadraxServers = map[string]string{
	RegionRestOfWorld:  "cocoapi.bmwgroup.com",
	RegionNorthAmerica: "cocoapi.bmwgroup.us",
	RegionChina:        "myprofile.bmw.com.cn",
}

// APIMKeys maps region to the ocp-apim-subscription-key header value.
var APIMKeys = map[string]string{
	RegionRestOfWorld:  "NGYxYzg1YTMtNzU4Zi1hMzdkLWJiYjYtZjg3MDQ0OTRhY2Zh",
	RegionNorthAmerica: "MzFlMTAyZjUtNmY3ZS03ZWYzLTkwNDQtZGRjZTYzODkxMzYy",
}

// UserAgents maps brand to the x-user-agent header value.
var UserAgents = map[string]string{
	BrandBMW:  "android(v1.07_20200330);bmw;1.7.0(11152)",
	BrandMini: "android(v1.07_20200330);mini;1.7.0(11152)",
}

// API paths and OAuth parameters.
const (
	APIOAuthConfig = "/eadrax-ucs/v1/presentation/oauth/config"
	APIVehicles    = "/eadrax-vcs/v1/vehicles"
	OAuthEndpoint  = "/oauth/authenticate"

	LoginNonce        = "login_nonce"
	AuthorizationCode = "authorization_code"
	HeaderAPIMKey     = "ocp-apim-subscription-key"
	HeaderXUserAgent  = "x-user-agent"
	KilometersJSON    = "KILOMETERS"
	NoEntries         = "No Entries"
	Anonymous         = "anonymous"
	codeChallengeS256 = "S256"
	verifierLength    = 64
	stateLength       = 16
)

// Channel groups.
const (
	GroupStatus   = "status"
	GroupRange    = "range"
	GroupDoors    = "doors"
	GroupLocation = "location"
	GroupService  = "service"
	GroupCheck    = "check"
	GroupTires    = "tires"
)

// Channel identifiers.
const (
	ChannelLock           = "lock"
	ChannelDoors          = "doors"
	ChannelWindows        = "windows"
	ChannelCheckControl   = "check-control"
	ChannelLastUpdate     = "last-update"
	ChannelServiceDate    = "service-date"
	ChannelServiceMileage = "service-mileage"
	ChannelPlugConnection = "plug-connection"
	ChannelChargeStatus   = "charge-status"
	ChannelChargeType     = "charge-type"

	ChannelRangeElectric       = "electric"
	ChannelRangeRadiusElectric = "radius-electric"
	ChannelRangeFuel           = "fuel"
	ChannelRangeRadiusFuel     = "radius-fuel"
	ChannelRangeHybrid         = "hybrid"
	ChannelRangeRadiusHybrid   = "radius-hybrid"
	ChannelMileage             = "mileage"
	ChannelSOC                 = "soc"
	ChannelRemainingFuel       = "remaining-fuel"

	ChannelDriverFront          = "driver-front"
	ChannelDriverRear           = "driver-rear"
	ChannelPassengerFront       = "passenger-front"
	ChannelPassengerRear        = "passenger-rear"
	ChannelTrunk                = "trunk"
	ChannelHood                 = "hood"
	ChannelWindowDriverFront    = "win-driver-front"
	ChannelWindowDriverRear     = "win-driver-rear"
	ChannelWindowPassengerFront = "win-passenger-front"
	ChannelWindowPassengerRear  = "win-passenger-rear"
	ChannelSunroof              = "sunroof"

	ChannelGPS     = "gps"
	ChannelHeading = "heading"

	ChannelName     = "name"
	ChannelDate     = "date"
	ChannelDetails  = "details"
	ChannelSeverity = "severity"

	ChannelFrontLeftCurrent  = "front-left-current"
	ChannelFrontLeftWanted   = "front-left-wanted"
	ChannelFrontRightCurrent = "front-right-current"
	ChannelFrontRightWanted  = "front-right-wanted"
	ChannelRearLeftCurrent   = "rear-left-current"
	ChannelRearLeftWanted    = "rear-left-wanted"
	ChannelRearRightCurrent  = "rear-right-current"
	ChannelRearRightWanted   = "rear-right-wanted"
)

// Channel texts.
const (
	Locked      = "Locked"
	Unlocked    = "Unlocked"
	Open        = "Open"
	Closed      = "Closed"
	Connected   = "Connected"
	Unconnected = "Not connected"
)

package thing

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Status of a thing.
type Status string

// Thing statuses.
const (
	StatusUnknown Status = "UNKNOWN"
	StatusOnline  Status = "ONLINE"
	StatusOffline Status = "OFFLINE"
)

// StatusDetail refines a status.
type StatusDetail string

// Status details.
const (
	DetailNone                 StatusDetail = "NONE"
	DetailConfigurationError   StatusDetail = "CONFIGURATION_ERROR"
	DetailConfigurationPending StatusDetail = "CONFIGURATION_PENDING"
	DetailCommunicationError   StatusDetail = "COMMUNICATION_ERROR"
	DetailBridgeOffline        StatusDetail = "BRIDGE_OFFLINE"
)

// StatusInfo is the full status of a thing.
type StatusInfo struct {
	Status      Status       `json:"status"`
	Detail      StatusDetail `json:"detail"`
	Description string       `json:"description,omitempty"`
}

// Thing is a configured device or account.
type Thing struct {
	UID       UID
	Label     string
	BridgeUID string
	Config    map[string]any
}

// Command is sent by the hub to a channel.
type Command interface {
	String() string
}

// RefreshType asks the handler to publish the channel again.
type RefreshType struct{}

func (RefreshType) String() string { return "REFRESH" }

// Refresh is the shared refresh command.
var Refresh Command = RefreshType{}

// StringCommand carries text.
type StringCommand string

func (s StringCommand) String() string { return string(s) }

// DecimalCommand carries a number.
type DecimalCommand float64

func (d DecimalCommand) String() string { return formatFloat(float64(d)) }

// ParseCommand maps a raw command string to a Command.
func ParseCommand(raw string) Command {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "REFRESH") {
		return Refresh
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return DecimalCommand(f)
	}
	return StringCommand(raw)
}

// Handler drives a thing.
type Handler interface {
	Initialize(ctx context.Context)
	Dispose()
	HandleCommand(ctx context.Context, channel ChannelUID, cmd Command)
}

// Callback is how handlers report back to the hub.
type Callback interface {
	UpdateState(channel ChannelUID, state State)
	UpdateStatus(thingUID string, status Status, detail StatusDetail, description string)
	ThingDiscovered(result DiscoveryResult)
}

// ErrUnsupportedType is returned by factories for thing types they do not handle.
var ErrUnsupportedType = errors.New("thing: unsupported thing type")

// HandlerFactory creates handlers for the things of one binding.
type HandlerFactory interface {
	Binding() string
	CreateHandler(t Thing, bridge Handler) (Handler, error)
}

// DiscoveryService scans for things on demand.
type DiscoveryService interface {
	StartScan(ctx context.Context) error
}

package mercedesme

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Element is one value of a vehicle data container.
type Element struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"`
}

// Text returns the value without JSON quoting.
func (e Element) Text() string {
	var s string
	if err := json.Unmarshal(e.Value, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(e.Value))
}

// Time returns the element timestamp.
func (e Element) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// ChannelStateMap is the state for one channel of a vehicle.
type ChannelStateMap struct {
	Group   string
	Channel string
	State   thing.State
}

func (c ChannelStateMap) String() string {
	return c.Group + ":" + c.Channel + " " + c.State.String()
}

type rule struct {
	group   string
	channel string
	convert func(string) (thing.State, error)
}

func quantity(unit string) func(string) (thing.State, error) {
	return func(v string) (thing.State, error) {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		return thing.NewQuantity(f, unit), nil
	}
}

func decimal(v string) (thing.State, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return thing.Decimal(f), nil
}

func onOff(v string) (thing.State, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return thing.OnOff(b), nil
}

// lockFlag reports ON for a locked flap, the vendor sends the unlocked flag.
func lockFlag(v string) (thing.State, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return thing.OnOff(!b), nil
}

func openClosed(v string) (thing.State, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return thing.OpenClosed(b), nil
}

var rules = map[string]rule{
	"odo":              {GroupRange, ChannelMileage, quantity(thing.UnitKilometre)},
	"rangeelectric":    {GroupRange, ChannelRangeElectric, quantity(thing.UnitKilometre)},
	"soc":              {GroupRange, ChannelSOC, quantity(thing.UnitPercent)},
	"rangeliquid":      {GroupRange, ChannelRangeFuel, quantity(thing.UnitKilometre)},
	"tanklevelpercent": {GroupRange, ChannelFuelLevel, quantity(thing.UnitPercent)},

	"doorlockstatusvehicle": {GroupLock, ChannelDoorsLock, decimal},
	"doorlockstatusdecklid": {GroupLock, ChannelDeckLid, lockFlag},
	"doorlockstatusgas":     {GroupLock, ChannelFlap, lockFlag},

	"positionHeading": {GroupLocation, ChannelHeading, quantity(thing.UnitDegree)},

	"decklidstatus":        {GroupDoors, ChannelDeckLid, openClosed},
	"doorstatusfrontleft":  {GroupDoors, ChannelDriverFront, openClosed},
	"doorstatusfrontright": {GroupDoors, ChannelPassengerFront, openClosed},
	"doorstatusrearleft":   {GroupDoors, ChannelDriverRear, openClosed},
	"doorstatusrearright":  {GroupDoors, ChannelPassengerRear, openClosed},
	"rooftopstatus":        {GroupDoors, ChannelRooftop, decimal},
	"sunroofstatus":        {GroupDoors, ChannelSunroof, decimal},

	"interiorLightsFront":   {GroupLights, ChannelInteriorFront, onOff},
	"interiorLightsRear":    {GroupLights, ChannelInteriorRear, onOff},
	"readingLampFrontLeft":  {GroupLights, ChannelReadingLeft, onOff},
	"readingLampFrontRight": {GroupLights, ChannelReadingRight, onOff},
	"lightswitchposition":   {GroupLights, ChannelLightSwitch, decimal},

	"windowstatusfrontleft":  {GroupWindows, ChannelDriverFront, decimal},
	"windowstatusfrontright": {GroupWindows, ChannelPassengerFront, decimal},
	"windowstatusrearleft":   {GroupWindows, ChannelDriverRear, decimal},
	"windowstatusrearright":  {GroupWindows, ChannelPassengerRear, decimal},
}

// Map converts one container element. Unknown keys and unparsable values yield nil.
func Map(key string, e Element) *ChannelStateMap {
	r, ok := rules[key]
	if !ok {
		return nil
	}
	st, err := r.convert(e.Text())
	if err != nil {
		return nil
	}
	return &ChannelStateMap{Group: r.group, Channel: r.channel, State: st}
}

// Container is a decoded vehicle data response.
type Container struct {
	States []ChannelStateMap
	Newest time.Time
}

// ParseContainer decodes a response of the form [{"key":{"value":…,"timestamp":…}}, …].
func ParseContainer(data []byte) (Container, error) {
	var entries []map[string]Element
	if err := json.Unmarshal(data, &entries); err != nil {
		return Container{}, fmt.Errorf("decode container: %w", err)
	}
	var c Container
	for _, entry := range entries {
		for key, e := range entry {
			if e.Timestamp > 0 && e.Time().After(c.Newest) {
				c.Newest = e.Time()
			}
			if m := Map(key, e); m != nil {
				c.States = append(c.States, *m)
			}
		}
	}
	return c, nil
}

package mybmw

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/convert"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// ErrVehicleNotFound is returned when the account does not list the configured vin.
var ErrVehicleNotFound = errors.New("mybmw: vehicle not found")

// VehicleHandler polls one vehicle through the account bridge.
type VehicleHandler struct {
	thing     thing.Thing
	uid       string
	bridge    thing.Handler
	callback  thing.Callback
	scheduler *scheduler.Scheduler
	logger    *zap.Logger

	hasFuel    bool
	isElectric bool
	isHybrid   bool

	cfg    VehicleConfig
	proxy  *Proxy
	cancel context.CancelFunc
	job    scheduler.Job

	mu              sync.Mutex
	cache           *Vehicle
	services        []CBS
	selectedService string
	checks          []CCMMessage
	selectedCheck   string
}

// NewVehicleHandler builds vehicle handler. The thing type decides which drive train channels exist.
func NewVehicleHandler(t thing.Thing, bridge thing.Handler, callback thing.Callback, sched *scheduler.Scheduler, logger *zap.Logger) *VehicleHandler {
	typ := t.UID.Type
	h := &VehicleHandler{
		thing:           t,
		uid:             t.UID.String(),
		bridge:          bridge,
		callback:        callback,
		scheduler:       sched,
		logger:          logger,
		hasFuel:         typ == TypeConventional || typ == TypePluginHybrid || typ == TypeElectricREX,
		isElectric:      typ == TypePluginHybrid || typ == TypeElectricREX || typ == TypeElectric,
		selectedService: convert.Undefined,
		selectedCheck:   convert.Undefined,
	}
	h.isHybrid = h.hasFuel && h.isElectric
	return h
}

// Initialize validates config and starts polling through the bridge proxy.
func (h *VehicleHandler) Initialize(ctx context.Context) {
	cfg := DefaultVehicleConfig()
	if err := thing.DecodeConfig(h.thing.Config, &cfg); err != nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	h.cfg = cfg
	account, ok := h.bridge.(*BridgeHandler)
	if !ok || account.Proxy() == nil {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailBridgeOffline, "account bridge not available")
		return
	}
	h.proxy = account.Proxy()
	h.callback.UpdateStatus(h.uid, thing.StatusUnknown, thing.DetailNone, "")

	pollCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.job = h.scheduler.Every(h.uid, cfg.Interval(), func() { h.update(pollCtx) })
}

// Dispose stops polling.
func (h *VehicleHandler) Dispose() {
	if h.job != nil {
		h.job.Cancel()
		h.job = nil
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// HandleCommand republishes on refresh and selects service or check control entries by index.
func (h *VehicleHandler) HandleCommand(_ context.Context, channel thing.ChannelUID, cmd thing.Command) {
	switch c := cmd.(type) {
	case thing.RefreshType:
		h.mu.Lock()
		v := h.cache
		h.mu.Unlock()
		if v != nil {
			h.Publish(*v)
		}
	case thing.DecimalCommand:
		if channel.ID != ChannelName {
			return
		}
		switch channel.Group {
		case GroupService:
			h.selectService(int(c))
		case GroupCheck:
			h.selectCheckControl(int(c))
		}
	}
}

func (h *VehicleHandler) update(ctx context.Context) {
	vehicles, err := h.proxy.RequestVehicles(ctx, h.cfg.VehicleBrand)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		h.logger.Warn("vehicle request failed", zap.Error(err))
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailCommunicationError, err.Error())
		return
	}
	v, ok := FindVehicle(vehicles, h.cfg.VIN)
	if !ok {
		h.callback.UpdateStatus(h.uid, thing.StatusOffline, thing.DetailCommunicationError, ErrVehicleNotFound.Error())
		return
	}
	h.mu.Lock()
	h.cache = &v
	h.mu.Unlock()
	h.Publish(v)
	h.callback.UpdateStatus(h.uid, thing.StatusOnline, thing.DetailNone, "")
}

// Publish writes all channels of a consistent vehicle.
func (h *VehicleHandler) Publish(v Vehicle) {
	h.updateVehicleStatus(v)
	h.updateRange(v)
	h.updateDoors(v.Properties.DoorsAndWindows)
	h.updateWindows(v.Properties.DoorsAndWindows)
	h.updatePosition(*v.Properties.VehicleLocation)
	h.updateServices(v.Properties.ServiceRequired)
	h.updateCheckControls(v.Status.CheckControlMessages)
	h.updateTires(v.Properties.Tires)
}

func (h *VehicleHandler) updateChannel(group, id string, st thing.State) {
	h.callback.UpdateState(thing.NewChannelUID(h.uid, group, id), st)
}

func (h *VehicleHandler) updateVehicleStatus(v Vehicle) {
	p := v.Properties
	h.updateChannel(GroupStatus, ChannelLock, LockState(p.AreDoorsLocked))
	h.updateChannel(GroupStatus, ChannelServiceDate, NextServiceDate(p.ServiceRequired))
	h.updateChannel(GroupStatus, ChannelServiceMileage, NextServiceMileage(p.ServiceRequired))
	h.updateChannel(GroupStatus, ChannelCheckControl, thing.String(v.Status.CheckControlMessagesGeneralState))
	h.updateChannel(GroupStatus, ChannelLastUpdate, DateState(p.LastUpdatedAt))
	h.updateChannel(GroupStatus, ChannelDoors, ClosedState(p.AreDoorsClosed))
	h.updateChannel(GroupStatus, ChannelWindows, ClosedState(p.AreWindowsClosed))

	if h.isElectric {
		h.updateChannel(GroupStatus, ChannelPlugConnection, ConnectionState(p.ChargingState.IsChargerConnected))
		h.updateChannel(GroupStatus, ChannelChargeStatus, thing.String(convert.TitleCase(p.ChargingState.State)))
		h.updateChannel(GroupStatus, ChannelChargeType, thing.String(convert.TitleCase(p.ChargingState.Type)))
	}
}

func (h *VehicleHandler) updateRange(v Vehicle) {
	p := v.Properties
	imperial := false
	if h.isElectric {
		d := p.ElectricRange.Distance
		imperial = d.Units != KilometersJSON
		h.updateChannel(GroupRange, ChannelRangeElectric, DistanceState(float64(d.Value), imperial))
		h.updateChannel(GroupRange, ChannelRangeRadiusElectric, DistanceState(GuessRangeRadius(float64(d.Value)), imperial))
	}
	if h.hasFuel {
		d := p.CombustionRange.Distance
		imperial = d.Units != KilometersJSON
		h.updateChannel(GroupRange, ChannelRangeFuel, DistanceState(float64(d.Value), imperial))
		h.updateChannel(GroupRange, ChannelRangeRadiusFuel, DistanceState(GuessRangeRadius(float64(d.Value)), imperial))
	}
	if h.isHybrid {
		if p.CombinedRange != nil && p.CombinedRange.Distance != nil {
			imperial = p.CombinedRange.Distance.Units != KilometersJSON
		}
		combined := -1.0
		if p.ElectricRange.Distance.Value >= 0 && p.CombustionRange.Distance.Value >= 0 {
			combined = float64(p.ElectricRange.Distance.Value + p.CombustionRange.Distance.Value)
		}
		h.updateChannel(GroupRange, ChannelRangeHybrid, DistanceState(combined, imperial))
		h.updateChannel(GroupRange, ChannelRangeRadiusHybrid, DistanceState(GuessRangeRadius(combined), imperial))
	}

	unit := thing.UnitKilometre
	if imperial {
		unit = thing.UnitMile
	}
	h.updateChannel(GroupRange, ChannelMileage, thing.NewQuantity(float64(v.Status.CurrentMileage.Mileage), unit))
	if h.isElectric {
		h.updateChannel(GroupRange, ChannelSOC, thing.NewQuantity(float64(p.ChargingState.ChargePercentage), thing.UnitPercent))
	}
	if h.hasFuel {
		h.updateChannel(GroupRange, ChannelRemainingFuel, thing.NewQuantity(float64(p.FuelLevel.Value), thing.UnitLitre))
	}
}

func (h *VehicleHandler) updateDoors(dw DoorsWindows) {
	h.updateChannel(GroupDoors, ChannelDriverFront, titled(dw.Doors.DriverFront))
	h.updateChannel(GroupDoors, ChannelDriverRear, titled(dw.Doors.DriverRear))
	h.updateChannel(GroupDoors, ChannelPassengerFront, titled(dw.Doors.PassengerFront))
	h.updateChannel(GroupDoors, ChannelPassengerRear, titled(dw.Doors.PassengerRear))
	h.updateChannel(GroupDoors, ChannelTrunk, titled(dw.Trunk))
	h.updateChannel(GroupDoors, ChannelHood, titled(dw.Hood))
}

func (h *VehicleHandler) updateWindows(dw DoorsWindows) {
	h.updateChannel(GroupDoors, ChannelWindowDriverFront, titled(dw.Windows.DriverFront))
	h.updateChannel(GroupDoors, ChannelWindowDriverRear, titled(dw.Windows.DriverRear))
	h.updateChannel(GroupDoors, ChannelWindowPassengerFront, titled(dw.Windows.PassengerFront))
	h.updateChannel(GroupDoors, ChannelWindowPassengerRear, titled(dw.Windows.PassengerRear))
	h.updateChannel(GroupDoors, ChannelSunroof, titled(dw.Moonroof))
}

func (h *VehicleHandler) updatePosition(loc Location) {
	h.updateChannel(GroupLocation, ChannelGPS, thing.Point{Lat: loc.Coordinates.Latitude, Lon: loc.Coordinates.Longitude})
	h.updateChannel(GroupLocation, ChannelHeading, thing.NewQuantity(float64(loc.Heading), thing.UnitDegree))
}

func (h *VehicleHandler) updateTires(t *Tires) {
	channels := []struct {
		current, wanted string
		tire            func(*Tires) Tire
	}{
		{ChannelFrontLeftCurrent, ChannelFrontLeftWanted, func(t *Tires) Tire { return t.FrontLeft }},
		{ChannelFrontRightCurrent, ChannelFrontRightWanted, func(t *Tires) Tire { return t.FrontRight }},
		{ChannelRearLeftCurrent, ChannelRearLeftWanted, func(t *Tires) Tire { return t.RearLeft }},
		{ChannelRearRightCurrent, ChannelRearRightWanted, func(t *Tires) Tire { return t.RearRight }},
	}
	for _, c := range channels {
		if t == nil {
			h.updateChannel(GroupTires, c.current, thing.Undef)
			h.updateChannel(GroupTires, c.wanted, thing.Undef)
			continue
		}
		status := c.tire(t).Status
		h.updateChannel(GroupTires, c.current, thing.NewQuantity(status.CurrentPressure/100, thing.UnitBar))
		h.updateChannel(GroupTires, c.wanted, thing.NewQuantity(status.TargetPressure/100, thing.UnitBar))
	}
}

func (h *VehicleHandler) updateServices(list []CBS) {
	if len(list) == 0 {
		list = []CBS{{Type: NoEntries}}
	}
	h.mu.Lock()
	h.services = list
	found := false
	for _, s := range list {
		if s.Type == h.selectedService {
			found = true
		}
	}
	h.mu.Unlock()
	if !found {
		h.selectService(0)
	}
}

func (h *VehicleHandler) selectService(index int) {
	h.mu.Lock()
	if index < 0 || index >= len(h.services) {
		h.mu.Unlock()
		return
	}
	s := h.services[index]
	h.selectedService = s.Type
	h.mu.Unlock()

	h.updateChannel(GroupService, ChannelName, thing.String(convert.TitleCase(s.Type)))
	h.updateChannel(GroupService, ChannelDate, DateState(s.DateTime))
	if s.Distance != nil {
		h.updateChannel(GroupService, ChannelMileage, thing.NewQuantity(float64(s.Distance.Value), distanceUnit(s.Distance.Units)))
	} else {
		h.updateChannel(GroupService, ChannelMileage, thing.NewQuantity(-1, thing.UnitKilometre))
	}
}

func (h *VehicleHandler) updateCheckControls(list []CCMMessage) {
	if len(list) == 0 {
		list = []CCMMessage{{Title: NoEntries, LongDescription: NoEntries, State: NoEntries}}
	}
	h.mu.Lock()
	h.checks = list
	found := false
	for _, c := range list {
		if c.Title == h.selectedCheck {
			found = true
		}
	}
	h.mu.Unlock()
	if !found {
		h.selectCheckControl(0)
	}
}

func (h *VehicleHandler) selectCheckControl(index int) {
	h.mu.Lock()
	if index < 0 || index >= len(h.checks) {
		h.mu.Unlock()
		return
	}
	c := h.checks[index]
	h.selectedCheck = c.Title
	h.mu.Unlock()

	h.updateChannel(GroupCheck, ChannelName, thing.String(c.Title))
	h.updateChannel(GroupCheck, ChannelDetails, thing.String(c.LongDescription))
	h.updateChannel(GroupCheck, ChannelSeverity, thing.String(c.State))
}

func titled(s string) thing.State {
	return thing.String(convert.TitleCase(s))
}

func distanceUnit(units string) string {
	if units == KilometersJSON {
		return thing.UnitKilometre
	}
	return thing.UnitMile
}

// GuessRangeRadius maps a road range to an air-line radius.
func GuessRangeRadius(rangeKm float64) float64 {
	return rangeKm * 0.8
}

// DistanceState renders a kilometre distance, converted to miles when imperial. Negative
// values are the missing-range sentinel and become Undef.
func DistanceState(km float64, imperial bool) thing.State {
	if km < 0 {
		return thing.Undef
	}
	q := thing.NewQuantity(km, thing.UnitKilometre)
	if !imperial {
		return q
	}
	return q.ToMiles()
}

// LockState renders the door lock flag.
func LockState(locked bool) thing.State {
	if locked {
		return thing.String(Locked)
	}
	return thing.String(Unlocked)
}

// ClosedState renders a closed flag.
func ClosedState(closed bool) thing.State {
	if closed {
		return thing.String(Closed)
	}
	return thing.String(Open)
}

// ConnectionState renders the charger plug flag.
func ConnectionState(connected bool) thing.State {
	if connected {
		return thing.String(Connected)
	}
	return thing.String(Unconnected)
}

// DateState parses an RFC 3339 timestamp, Undef when absent or malformed.
func DateState(raw string) thing.State {
	if raw == "" {
		return thing.Undef
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return thing.Undef
	}
	return thing.DateTime(t)
}

// NextServiceDate returns the earliest service date.
func NextServiceDate(list []CBS) thing.State {
	var next time.Time
	for _, s := range list {
		t, err := time.Parse(time.RFC3339, s.DateTime)
		if err != nil {
			continue
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	if next.IsZero() {
		return thing.Undef
	}
	return thing.DateTime(next)
}

// NextServiceMileage returns the smallest service distance.
func NextServiceMileage(list []CBS) thing.State {
	var next *Distance
	for _, s := range list {
		if s.Distance == nil {
			continue
		}
		if next == nil || s.Distance.Value < next.Value {
			next = s.Distance
		}
	}
	if next == nil {
		return thing.Undef
	}
	return thing.NewQuantity(float64(next.Value), distanceUnit(next.Units))
}

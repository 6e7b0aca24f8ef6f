package thing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Units used by the bindings.
const (
	UnitKilometre    = "km"
	UnitMile         = "mi"
	UnitCentimetre   = "cm"
	UnitPercent      = "%"
	UnitDegree       = "°"
	UnitLitre        = "l"
	UnitBar          = "bar"
	UnitKilowattHour = "kWh"
)

// Kilometres per mile.
const milesToKmRatio = 1.60934

// State kinds, used for persistence and the event stream.
const (
	KindUndef      = "undef"
	KindDecimal    = "decimal"
	KindQuantity   = "quantity"
	KindOnOff      = "onoff"
	KindOpenClosed = "openclosed"
	KindString     = "string"
	KindDateTime   = "datetime"
	KindPoint      = "point"
)

// State is a typed channel value.
type State interface {
	Kind() string
	String() string
}

// UndefType marks a channel without a valid value.
type UndefType struct{}

// Undef is the shared undefined state.
var Undef State = UndefType{}

func (UndefType) Kind() string   { return KindUndef }
func (UndefType) String() string { return "UNDEF" }

// Decimal is a plain number.
type Decimal float64

func (Decimal) Kind() string { return KindDecimal }
func (d Decimal) String() string {
	return formatFloat(float64(d))
}

// Quantity is a number with a unit.
type Quantity struct {
	Value float64
	Unit  string
}

// NewQuantity builds a quantity.
func NewQuantity(value float64, unit string) Quantity {
	return Quantity{Value: value, Unit: unit}
}

func (Quantity) Kind() string { return KindQuantity }
func (q Quantity) String() string {
	return formatFloat(q.Value) + " " + q.Unit
}

// ToMiles converts a kilometre quantity to miles.
func (q Quantity) ToMiles() Quantity {
	if q.Unit != UnitKilometre {
		return q
	}
	return Quantity{Value: q.Value / milesToKmRatio, Unit: UnitMile}
}

// OnOff is a switch state.
type OnOff bool

// On and Off states.
const (
	On  OnOff = true
	Off OnOff = false
)

func (OnOff) Kind() string { return KindOnOff }
func (o OnOff) String() string {
	if o {
		return "ON"
	}
	return "OFF"
}

// OpenClosed is a contact state.
type OpenClosed bool

// Open and Closed states.
const (
	Open   OpenClosed = true
	Closed OpenClosed = false
)

func (OpenClosed) Kind() string { return KindOpenClosed }
func (o OpenClosed) String() string {
	if o {
		return "OPEN"
	}
	return "CLOSED"
}

// String is a text state.
type String string

func (String) Kind() string     { return KindString }
func (s String) String() string { return string(s) }

// DateTime is a point in time.
type DateTime time.Time

func (DateTime) Kind() string { return KindDateTime }
func (d DateTime) String() string {
	return time.Time(d).Format(time.RFC3339)
}

// Point is a geo location.
type Point struct {
	Lat float64
	Lon float64
}

func (Point) Kind() string { return KindPoint }
func (p Point) String() string {
	return formatFloat(p.Lat) + "," + formatFloat(p.Lon)
}

// ParsePoint parses "lat,lon".
func ParsePoint(raw string) (Point, error) {
	lat, lon, ok := strings.Cut(raw, ",")
	if !ok {
		return Point{}, fmt.Errorf("thing: invalid point %q", raw)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Point{}, fmt.Errorf("thing: invalid latitude: %w", err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return Point{}, fmt.Errorf("thing: invalid longitude: %w", err)
	}
	return Point{Lat: la, Lon: lo}, nil
}

// EncodeState splits a state into kind and value for storage.
func EncodeState(s State) (string, string) {
	if s == nil {
		return KindUndef, ""
	}
	return s.Kind(), s.String()
}

// ParseState restores a state previously produced by EncodeState.
func ParseState(kind, value string) (State, error) {
	switch kind {
	case KindUndef:
		return Undef, nil
	case KindDecimal:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		return Decimal(f), nil
	case KindQuantity:
		num, unit, ok := strings.Cut(value, " ")
		if !ok {
			return nil, fmt.Errorf("thing: invalid quantity %q", value)
		}
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return nil, err
		}
		return Quantity{Value: f, Unit: unit}, nil
	case KindOnOff:
		return OnOff(value == "ON"), nil
	case KindOpenClosed:
		return OpenClosed(value == "OPEN"), nil
	case KindString:
		return String(value), nil
	case KindDateTime:
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, err
		}
		return DateTime(t), nil
	case KindPoint:
		return ParsePoint(value)
	default:
		return nil, fmt.Errorf("thing: unknown state kind %q", kind)
	}
}

// Numeric returns the numeric value of a state, if it has one.
func Numeric(s State) (float64, bool) {
	switch v := s.(type) {
	case Decimal:
		return float64(v), true
	case Quantity:
		return v.Value, true
	case OnOff:
		if v {
			return 1, true
		}
		return 0, true
	case OpenClosed:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package pegelonline

import (
	"strings"
	"time"
)

// Trend and level values published on the channels.
const (
	TrendRising   = "Rising"
	TrendConstant = "Constant"
	TrendLowering = "Lowering"
	LevelHigh     = "High"
	LevelNormal   = "Normal"
	LevelLow      = "Low"
	Unknown       = "Unknown"
)

// Measure is the current water level of a station.
type Measure struct {
	Timestamp   string  `json:"timestamp"`
	Value       float64 `json:"value"`
	Trend       int     `json:"trend"`
	StateMnwMhw string  `json:"stateMnwMhw"`
	StateNswHsw string  `json:"stateNswHsw"`
}

// Time parses the measure timestamp.
func (m Measure) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, m.Timestamp)
}

// TrendName maps the numeric trend.
func (m Measure) TrendName() string {
	switch m.Trend {
	case 1:
		return TrendRising
	case 0:
		return TrendConstant
	case -1:
		return TrendLowering
	default:
		return Unknown
	}
}

// Level classifies the measure against mean low/high water and navigation marks.
func (m Measure) Level() string {
	switch {
	case strings.EqualFold(m.StateMnwMhw, LevelLow):
		return LevelLow
	case strings.EqualFold(m.StateMnwMhw, LevelNormal):
		return LevelNormal
	case strings.EqualFold(m.StateNswHsw, LevelHigh):
		return LevelHigh
	default:
		return Unknown
	}
}

// Water is the river or lake of a station.
type Water struct {
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
}

// Station is a gauge station.
type Station struct {
	UUID      string  `json:"uuid"`
	Number    string  `json:"number"`
	ShortName string  `json:"shortname"`
	LongName  string  `json:"longname"`
	Km        float64 `json:"km"`
	Agency    string  `json:"agency"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Water     Water   `json:"water"`
}

package solarforecast

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Undefined is returned when a value cannot be computed.
const Undefined = -1.0

const sampleLayout = "2006-01-02 15:04:05"

type sample struct {
	at time.Time
	wh float64
}

type estimate struct {
	Result struct {
		WattHours    map[string]float64 `json:"watt_hours"`
		WattHoursDay map[string]float64 `json:"watt_hours_day"`
	} `json:"result"`
}

// Forecast holds one forecast.solar estimate. Only samples of the day it was built on are kept.
type Forecast struct {
	samples []sample
	days    map[string]float64
	raw     string
	built   time.Time
}

// NewForecast parses an estimate response. Timestamps are read in now's location.
func NewForecast(content []byte, now time.Time) (*Forecast, error) {
	var e estimate
	if err := json.Unmarshal(content, &e); err != nil {
		return nil, fmt.Errorf("decode estimate: %w", err)
	}
	f := &Forecast{
		days:  e.Result.WattHoursDay,
		raw:   string(content),
		built: now,
	}
	for key, wh := range e.Result.WattHours {
		at, err := time.ParseInLocation(sampleLayout, key, now.Location())
		if err != nil {
			return nil, fmt.Errorf("parse sample time %q: %w", key, err)
		}
		if sameDay(at, now) {
			f.samples = append(f.samples, sample{at: at, wh: wh})
		}
	}
	sort.Slice(f.samples, func(i, j int) bool { return f.samples[i].at.Before(f.samples[j].at) })
	return f, nil
}

// Raw returns the response the forecast was built from.
func (f *Forecast) Raw() string {
	if f == nil {
		return ""
	}
	return f.raw
}

// IsValid reports whether the forecast has samples and was built within the hour of now.
func (f *Forecast) IsValid(now time.Time) bool {
	if f == nil || len(f.samples) == 0 {
		return false
	}
	b := f.built.In(now.Location())
	return sameDay(b, now) && b.Hour() == now.Hour()
}

// ActualValue returns the kWh produced until now, interpolating linearly between the
// bounding samples. Before the first sample it is 0, after the last it is the last sample.
func (f *Forecast) ActualValue(now time.Time) float64 {
	if f == nil || len(f.samples) == 0 {
		return Undefined
	}
	// first sample strictly after now
	idx := sort.Search(len(f.samples), func(i int) bool { return f.samples[i].at.After(now) })
	if idx == 0 {
		return 0
	}
	floor := f.samples[idx-1]
	if idx == len(f.samples) || floor.at.Equal(now) {
		return toKWh(floor.wh)
	}
	ceil := f.samples[idx]
	span := ceil.at.Sub(floor.at)
	elapsed := now.Sub(floor.at)
	return toKWh(floor.wh + (ceil.wh-floor.wh)*float64(elapsed)/float64(span))
}

// DayTotal returns the kWh forecast for the day offset days after now.
func (f *Forecast) DayTotal(now time.Time, offset int) float64 {
	if f == nil || f.raw == "" {
		return Undefined
	}
	key := now.AddDate(0, 0, offset).Format("2006-01-02")
	wh, ok := f.days[key]
	if !ok {
		return Undefined
	}
	return toKWh(wh)
}

// RemainingProduction returns the kWh still expected today.
func (f *Forecast) RemainingProduction(now time.Time) float64 {
	if f == nil || len(f.samples) == 0 {
		return Undefined
	}
	total := f.DayTotal(now, 0)
	if total < 0 {
		return Undefined
	}
	return total - f.ActualValue(now)
}

// StateOf maps a kWh value to a channel state.
func StateOf(kwh float64) thing.State {
	if kwh < 0 {
		return thing.Undef
	}
	return thing.NewQuantity(kwh, thing.UnitKilowattHour)
}

func toKWh(wh float64) float64 {
	return math.Round(wh) / 1000
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

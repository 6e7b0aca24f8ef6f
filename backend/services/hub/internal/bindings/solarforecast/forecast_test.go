package solarforecast

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

var cest = time.FixedZone("CEST", 2*60*60)

func at(hour, minute int) time.Time {
	return time.Date(2022, 7, 17, hour, minute, 0, 0, cest)
}

func loadForecast(t *testing.T, now time.Time) *Forecast {
	t.Helper()
	content, err := os.ReadFile("testdata/result.json")
	require.NoError(t, err)
	f, err := NewForecast(content, now)
	require.NoError(t, err)
	return f
}

func TestForecastValues(t *testing.T) {
	now := at(16, 23)
	f := loadForecast(t, now)

	assert.InDelta(t, 46.98, f.ActualValue(now), 0.0001)
	assert.InDelta(t, 7.42, f.RemainingProduction(now), 0.0001)
	assert.InDelta(t, 54.4, f.DayTotal(now, 0), 0.0001)
	assert.InDelta(t, 48.765, f.DayTotal(now, 1), 0.0001)
	assert.Equal(t, Undefined, f.DayTotal(now, 2))
	assert.InDelta(t, f.DayTotal(now, 0), f.ActualValue(now)+f.RemainingProduction(now), 0.001)
}

func TestForecastBoundaries(t *testing.T) {
	f := loadForecast(t, at(12, 0))

	assert.Equal(t, 0.0, f.ActualValue(at(4, 59)))
	assert.Equal(t, 0.0, f.ActualValue(at(5, 0)))
	assert.Equal(t, 0.5, f.ActualValue(at(6, 0)))
	assert.Equal(t, 54.4, f.ActualValue(at(21, 0)))
	assert.Equal(t, 54.4, f.ActualValue(at(23, 30)))
	assert.Equal(t, 1.25, f.ActualValue(at(6, 30)))
}

func TestForecastInterpolationIncreases(t *testing.T) {
	now := at(16, 0)
	f := loadForecast(t, now)
	previous := f.ActualValue(now)
	for i := 0; i < 60; i++ {
		now = now.Add(time.Minute)
		v := f.ActualValue(now)
		assert.Greater(t, v, previous, now.Format("15:04"))
		previous = v
	}
	assert.Equal(t, 49.2, previous)
}

func TestForecastInterpolationWithinSampleBounds(t *testing.T) {
	f := loadForecast(t, at(12, 0))
	for i := 1; i < len(f.samples); i++ {
		t0, t1 := f.samples[i-1], f.samples[i]
		assert.Equal(t, toKWh(t0.wh), f.ActualValue(t0.at))
		assert.Equal(t, toKWh(t1.wh), f.ActualValue(t1.at))
		prev := f.ActualValue(t0.at)
		for ts := t0.at; !ts.After(t1.at); ts = ts.Add(7 * time.Minute) {
			v := f.ActualValue(ts)
			assert.GreaterOrEqual(t, v, prev)
			prev = v
		}
	}
}

func TestForecastKeepsOnlyToday(t *testing.T) {
	f := loadForecast(t, at(12, 0))
	assert.Len(t, f.samples, 17)
	for _, s := range f.samples {
		assert.Equal(t, 17, s.at.Day())
	}
}

func TestForecastValidity(t *testing.T) {
	f := loadForecast(t, at(16, 23))
	assert.True(t, f.IsValid(at(16, 59)))
	assert.False(t, f.IsValid(at(17, 0)))
	assert.False(t, f.IsValid(at(16, 23).AddDate(0, 0, 1)))
}

func TestForecastErrorCases(t *testing.T) {
	var empty *Forecast
	now := at(16, 23)
	assert.False(t, empty.IsValid(now))
	assert.Equal(t, Undefined, empty.ActualValue(now))
	assert.Equal(t, Undefined, empty.DayTotal(now, 0))
	assert.Equal(t, Undefined, empty.RemainingProduction(now))

	f, err := NewForecast([]byte(`{"result":{"watt_hours":{},"watt_hours_day":{}}}`), now)
	require.NoError(t, err)
	assert.False(t, f.IsValid(now))
	assert.Equal(t, Undefined, f.ActualValue(now))
	assert.Equal(t, Undefined, f.DayTotal(now, 0))

	_, err = NewForecast([]byte(`{"result":{"watt_hours":{"yesterday":1}}}`), now)
	assert.Error(t, err)
	_, err = NewForecast([]byte(`<html>`), now)
	assert.Error(t, err)
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, thing.Undef, StateOf(-1))
	assert.Equal(t, "46.98 kWh", StateOf(46.98).String())
	assert.Equal(t, "0 kWh", StateOf(0).String())
}

package pegelonline

import (
	"errors"
	"math"
	"time"
)

// NotSet marks a warning level that is not configured.
const NotSet = math.MaxInt32

// Config of a station thing.
type Config struct {
	UUID            string `yaml:"uuid"`
	WarningLevel1   int    `yaml:"warningLevel1"`
	WarningLevel2   int    `yaml:"warningLevel2"`
	WarningLevel3   int    `yaml:"warningLevel3"`
	HQ10            int    `yaml:"hq10"`
	HQ100           int    `yaml:"hq100"`
	HQExtreme       int    `yaml:"hqExtreme"`
	RefreshInterval int    `yaml:"refreshInterval"`
}

// DefaultConfig returns config with all warning levels unset.
func DefaultConfig() Config {
	return Config{
		WarningLevel1:   NotSet,
		WarningLevel2:   NotSet,
		WarningLevel3:   NotSet,
		HQ10:            NotSet,
		HQ100:           NotSet,
		HQExtreme:       NotSet,
		RefreshInterval: 15,
	}
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.UUID == "" {
		return errors.New("station uuid missing")
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	return nil
}

// Interval returns the polling interval.
func (c Config) Interval() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Minute
}

func (c Config) levels() []int {
	return []int{c.WarningLevel1, c.WarningLevel2, c.WarningLevel3, c.HQ10, c.HQ100, c.HQExtreme}
}

// WarningLevels counts configured levels.
func (c Config) WarningLevels() int {
	n := 0
	for _, l := range c.levels() {
		if l < NotSet {
			n++
		}
	}
	return n
}

// ActualWarningLevel counts levels strictly exceeded by value.
func (c Config) ActualWarningLevel(value float64) int {
	n := 0
	for _, l := range c.levels() {
		if l < NotSet && value > float64(l) {
			n++
		}
	}
	return n
}

package logic

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultSensorInterval is the minimum time between two climate reads.
const DefaultSensorInterval = 2 * time.Second

const (
	// AnalogSamples is how many raw samples are averaged per query.
	AnalogSamples = 10
	// AnalogMax is the top of the raw analog range.
	AnalogMax = 1023
)

var (
	// ErrReadFailed is returned when the climate sensor yields no valid reading.
	ErrReadFailed = errors.New("climate sensor read failed")
	// ErrAnalogRead is returned when no analog sample could be taken.
	ErrAnalogRead = errors.New("analog sensor read failed")
)

// ClimateSensor is the slow temperature/humidity sensor.
type ClimateSensor interface {
	// Sense returns temperature in °C and relative humidity in %.
	Sense() (temperature, humidity float64, err error)
}

// AnalogSensor returns one raw sample in [0, AnalogMax].
type AnalogSensor interface {
	Sample() (int, error)
}

// Reading is a climate sample. It is either fully valid or fully invalid.
type Reading struct {
	Temperature float64
	Humidity    float64
	SampledAt   time.Time
	Valid       bool
}

// SensorCache rate-limits reads of a slow climate sensor and keeps the
// last good value.
type SensorCache struct {
	sensor   ClimateSensor
	interval time.Duration
	last     Reading
}

// NewSensorCache creates a cache with no valid reading.
func NewSensorCache(sensor ClimateSensor, interval time.Duration) *SensorCache {
	return &SensorCache{sensor: sensor, interval: interval}
}

// Refresh returns the cached reading if it is valid and younger than the
// interval; otherwise it reads the sensor. A failed read leaves the cache
// untouched and returns ErrReadFailed.
func (c *SensorCache) Refresh(now time.Time) (Reading, error) {
	if c.last.Valid && now.Sub(c.last.SampledAt) < c.interval {
		return c.last, nil
	}

	t, h, err := c.sensor.Sense()
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	if !validClimate(t, h) {
		return Reading{}, ErrReadFailed
	}

	c.last = Reading{
		Temperature: t,
		Humidity:    h,
		SampledAt:   now,
		Valid:       true,
	}
	return c.last, nil
}

// Last returns the last good reading, which may be the zero Reading.
func (c *SensorCache) Last() Reading {
	return c.last
}

func validClimate(t, h float64) bool {
	if math.IsNaN(t) || math.IsInf(t, 0) || math.IsNaN(h) || math.IsInf(h, 0) {
		return false
	}
	return h >= 0 && h <= 100
}

// AnalogLevel is an averaged analog reading.
type AnalogLevel struct {
	Raw     int
	Percent int
}

// ReadAnalog averages AnalogSamples samples. Failed samples are skipped;
// if every sample fails ErrAnalogRead is returned.
func ReadAnalog(s AnalogSensor) (AnalogLevel, error) {
	var sum, n int
	var lastErr error
	for i := 0; i < AnalogSamples; i++ {
		v, err := s.Sample()
		if err != nil {
			lastErr = err
			continue
		}
		sum += clamp(v, 0, AnalogMax)
		n++
	}
	if n == 0 {
		return AnalogLevel{}, fmt.Errorf("%w: %v", ErrAnalogRead, lastErr)
	}

	raw := sum / n
	return AnalogLevel{Raw: raw, Percent: Percent(raw)}, nil
}

// Percent maps a raw sample linearly onto 0–100 with integer truncation.
func Percent(raw int) int {
	return clamp(raw, 0, AnalogMax) * 100 / AnalogMax
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

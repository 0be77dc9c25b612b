package sensor

import (
	"math"
	"sync"
)

// FakeClimate is a settable climate sensor, safe for concurrent use.
type FakeClimate struct {
	mu    sync.Mutex
	temp  float64
	hum   float64
	err   error
	calls int
}

// NewFakeClimate returns a sensor reporting t degrees and h percent.
func NewFakeClimate(t, h float64) *FakeClimate {
	return &FakeClimate{temp: t, hum: h}
}

// Set changes the reported values and clears any failure.
func (f *FakeClimate) Set(t, h float64) {
	f.mu.Lock()
	f.temp, f.hum, f.err = t, h, nil
	f.mu.Unlock()
}

// Fail makes every following Sense return err.
func (f *FakeClimate) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Sense implements logic.ClimateSensor.
func (f *FakeClimate) Sense() (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return math.NaN(), math.NaN(), f.err
	}
	return f.temp, f.hum, nil
}

// Calls returns how many times Sense was invoked.
func (f *FakeClimate) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeAnalog is a settable analog input, safe for concurrent use.
type FakeAnalog struct {
	mu  sync.Mutex
	raw int
	err error
}

// NewFakeAnalog returns an input that reads raw.
func NewFakeAnalog(raw int) *FakeAnalog {
	return &FakeAnalog{raw: raw}
}

// Set changes the raw value and clears any failure.
func (f *FakeAnalog) Set(raw int) {
	f.mu.Lock()
	f.raw, f.err = raw, nil
	f.mu.Unlock()
}

// Fail makes every following Sample return err.
func (f *FakeAnalog) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Sample implements logic.AnalogSensor.
func (f *FakeAnalog) Sample() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.raw, nil
}

package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/homesec-node/internal/logic"
)

// FakeButton is a test double whose level is either scripted or set directly.
// It is safe for concurrent use so the bench console can press it while the
// loop polls.
type FakeButton struct {
	mu sync.Mutex

	// Samples are returned one per Level call; the last repeats.
	// When empty, the current settable level is returned.
	Samples []bool
	index   int
	level   bool

	// ReadError, if set, will be returned by Level.
	ReadError error
	Closed    bool
}

// NewFakeButton creates a released button (line high).
func NewFakeButton() *FakeButton {
	return &FakeButton{level: true}
}

// NewScriptedButton creates a button that replays samples.
func NewScriptedButton(samples []bool) *FakeButton {
	return &FakeButton{Samples: samples, level: true}
}

// Press holds the line low.
func (f *FakeButton) Press() {
	f.Set(false)
}

// Release lets the line go high.
func (f *FakeButton) Release() {
	f.Set(true)
}

// Set forces the raw level.
func (f *FakeButton) Set(level bool) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

// Level returns the next scripted sample or the current level.
func (f *FakeButton) Level() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return f.level, nil
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// Close marks the button closed.
func (f *FakeButton) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeOutputs records every frame written.
type FakeOutputs struct {
	mu      sync.Mutex
	frames  []logic.Frame
	current logic.Frame

	// WriteError, if set, will be returned by Write.
	WriteError error
	Closed     bool
}

// NewFakeOutputs creates an empty recorder.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

// Write records f as the current frame.
func (f *FakeOutputs) Write(fr logic.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Closed {
		return errors.New("outputs closed")
	}
	if f.WriteError != nil {
		return f.WriteError
	}
	f.frames = append(f.frames, fr)
	f.current = fr
	return nil
}

// Current returns the last frame written.
func (f *FakeOutputs) Current() logic.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Frames returns a copy of every frame written so far.
func (f *FakeOutputs) Frames() []logic.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logic.Frame(nil), f.frames...)
}

// Close marks the outputs closed.
func (f *FakeOutputs) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

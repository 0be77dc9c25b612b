//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/homesec-node/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns an error on non-Linux platforms.
func NewRealButton(Pins) (*RealButton, error) {
	return nil, errUnsupported
}

// Level is not implemented on non-Linux platforms.
func (b *RealButton) Level() (bool, error) {
	return false, errUnsupported
}

// Close is a no-op on non-Linux platforms.
func (b *RealButton) Close() error {
	return nil
}

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(Pins) (*RealOutputs, error) {
	return nil, errUnsupported
}

// Write is not implemented on non-Linux platforms.
func (o *RealOutputs) Write(logic.Frame) error {
	return errUnsupported
}

// Close is a no-op on non-Linux platforms.
func (o *RealOutputs) Close() error {
	return nil
}

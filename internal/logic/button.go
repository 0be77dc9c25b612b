package logic

import "time"

// DefaultDebounce is how long the raw level must hold before it is accepted.
const DefaultDebounce = 50 * time.Millisecond

// PressedLevel is the raw level of a pressed button (active low).
const PressedLevel = false

// Button converts a noisy raw level into toggle edges.
// An edge is derived from the stable-level transition, so holding the
// button never re-triggers and the tick rate does not matter.
type Button struct {
	debounce time.Duration

	raw        bool
	stable     bool
	lastChange time.Time
}

// NewButton creates a debouncer seeded with the level observed at boot.
// The seed is accepted as stable so a button held during boot does not toggle.
func NewButton(debounce time.Duration, initial bool, now time.Time) *Button {
	return &Button{
		debounce:   debounce,
		raw:        initial,
		stable:     initial,
		lastChange: now,
	}
}

// Poll feeds one raw sample and reports whether a toggle edge occurred.
func (b *Button) Poll(raw bool, now time.Time) bool {
	if raw != b.raw {
		b.lastChange = now
	}
	b.raw = raw

	if now.Sub(b.lastChange) <= b.debounce {
		return false
	}
	if raw == b.stable {
		return false
	}

	b.stable = raw
	return b.stable == PressedLevel
}

// Stable returns the accepted level.
func (b *Button) Stable() bool {
	return b.stable
}

// Pressed reports whether the accepted level is the pressed level.
func (b *Button) Pressed() bool {
	return b.stable == PressedLevel
}

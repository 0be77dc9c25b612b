package logic

import "time"

// DefaultBlinkInterval is the half period of the armed alarm blink.
const DefaultBlinkInterval = 300 * time.Millisecond

// Blinker toggles the alarm outputs based on elapsed time, independent of
// how often it is ticked.
type Blinker struct {
	interval time.Duration

	on          bool
	lastToggled time.Time
}

// NewBlinker creates a blinker whose first period starts at now.
func NewBlinker(interval time.Duration, now time.Time) *Blinker {
	return &Blinker{
		interval:    interval,
		lastToggled: now,
	}
}

// Tick flips the phase when a full interval has elapsed and returns the
// armed frame. Calling it repeatedly inside one interval is a no-op.
func (b *Blinker) Tick(now time.Time) Frame {
	if now.Sub(b.lastToggled) >= b.interval {
		b.on = !b.on
		b.lastToggled = now
	}
	return Frame{Buzzer: b.on, Primary: b.on, Secondary: b.on}
}

// Reset drops the phase to off. The toggle timestamp is kept.
func (b *Blinker) Reset() {
	b.on = false
}

// Phase returns the current blink phase.
func (b *Blinker) Phase() bool {
	return b.on
}

// Outputs computes the actuator frame for the current state.
// OFF always wins over any blink state; ON and disarmed is dark.
func Outputs(st State, b *Blinker, now time.Time) Frame {
	switch {
	case st.Mode != ModeOn:
		b.Reset()
		return FrameOff
	case !st.Armed:
		b.Reset()
		return Frame{}
	default:
		return b.Tick(now)
	}
}

package logic

import "time"

// DefaultHalfPhase is the duration of one half of a startup animation cycle.
const DefaultHalfPhase = 750 * time.Millisecond

// Announcements sent over the wireless channel on button transitions.
const (
	AnnounceEnabled  = "SYSTEM ENABLED by button."
	AnnounceDisabled = "SYSTEM OFF by button."
)

// Step is one frame of an output sequence and how long it is held.
type Step struct {
	Frame Frame
	Hold  time.Duration
}

// StartupSteps returns the power-on animation: red and green alternate for
// two full cycles with the buzzer silent, ending dark.
func StartupSteps(halfPhase time.Duration) []Step {
	red := Frame{Primary: true}
	green := Frame{Secondary: true}
	return []Step{
		{Frame: red, Hold: halfPhase},
		{Frame: green, Hold: halfPhase},
		{Frame: red, Hold: halfPhase},
		{Frame: green, Hold: halfPhase},
		{Frame: Frame{}},
	}
}

// Transition describes the side effects of a mode change.
type Transition struct {
	Event    Event
	Announce string
	// Entry is written to the actuators immediately on entering the mode.
	Entry Frame
	// Animation is played after Entry; empty when entering OFF.
	Animation []Step
}

// Power is the OFF/ON state machine driven by button toggle edges.
type Power struct {
	halfPhase time.Duration
}

// NewPower creates the power state machine.
func NewPower(halfPhase time.Duration) *Power {
	return &Power{halfPhase: halfPhase}
}

// Toggle flips the mode. The armed flag is cleared on every transition,
// so the alarm never outlives a power-off.
func (p *Power) Toggle(st *State, now time.Time) Transition {
	st.Armed = false

	if st.Mode == ModeOn {
		st.Mode = ModeOff
		return Transition{
			Event:    Event{Timestamp: now, Type: EventSystemOff, Mode: ModeOff},
			Announce: AnnounceDisabled,
			Entry:    FrameOff,
		}
	}

	st.Mode = ModeOn
	return Transition{
		Event:     Event{Timestamp: now, Type: EventSystemOn, Mode: ModeOn},
		Announce:  AnnounceEnabled,
		Entry:     Frame{},
		Animation: StartupSteps(p.halfPhase),
	}
}

// Sequence plays a list of steps against elapsed time without blocking.
type Sequence struct {
	steps []Step
	start time.Time
}

// NewSequence starts playing steps at now.
func NewSequence(steps []Step, now time.Time) *Sequence {
	return &Sequence{steps: steps, start: now}
}

// Frame returns the frame due at now and whether the sequence has finished.
// A finished sequence keeps returning its last frame.
func (s *Sequence) Frame(now time.Time) (Frame, bool) {
	if len(s.steps) == 0 {
		return Frame{}, true
	}

	elapsed := now.Sub(s.start)
	for i, step := range s.steps {
		if i == len(s.steps)-1 {
			return step.Frame, true
		}
		if elapsed < step.Hold {
			return step.Frame, false
		}
		elapsed -= step.Hold
	}
	return s.steps[len(s.steps)-1].Frame, true
}

// Duration is the total hold time of the sequence.
func (s *Sequence) Duration() time.Duration {
	var d time.Duration
	for _, step := range s.steps {
		d += step.Hold
	}
	return d
}

package logic

import (
	"fmt"
	"time"
)

// Reply lines sent back over the wireless channel.
const (
	ReplyAlarmOn      = "ALARM ON"
	ReplyAlarmOff     = "ALARM OFF"
	ReplySystemOff    = "SYSTEM OFF, please press button to enable."
	ReplyClimateError = "ERROR: Failed to read from climate sensor."
	ReplySoundError   = "ERROR: Failed to read from sound sensor."
	ReplyLightError   = "ERROR: Failed to read from light sensor."
)

// HelpText is the reply to '?'.
var HelpText = []string{
	"HomeSecurity Commands:",
	"  a - alarm ON (only if system is ON)",
	"  x - alarm OFF",
	"  t - read temperature & humidity",
	"  s - read sound level (0-1023, 0-100%)",
	"  l - read light level (0-1023, 0-100%)",
	"  e - ENV snapshot (temp/hum/sound/light)",
	"Button: toggle system power (ON/OFF).",
	"SYSTEM OFF: green LED ON, 'a' ignored.",
}

// Result is the outcome of dispatching one wireless byte.
type Result struct {
	// Reply holds the lines to send back, without line terminators.
	Reply []string
	// Forward is set when the byte belongs to the vision board.
	Forward bool
	// Event is set when the byte changed the armed flag.
	Event *Event
}

// Router interprets wireless command bytes. It may change State.Armed but
// never State.Mode: power is the button's job alone.
type Router struct {
	climate *SensorCache
	sound   AnalogSensor
	light   AnalogSensor
}

// NewRouter creates a router reading from the given sensors.
func NewRouter(climate *SensorCache, sound, light AnalogSensor) *Router {
	return &Router{climate: climate, sound: sound, light: light}
}

// Dispatch handles a single byte received on the wireless channel.
func (r *Router) Dispatch(st *State, b byte, now time.Time) Result {
	if b == '\r' || b == '\n' {
		return Result{}
	}

	switch lower(b) {
	case 'a':
		return r.arm(st, now)
	case 'x':
		return r.disarm(st, now)
	case 't':
		return r.temperature(now)
	case 's':
		return analogReply(r.sound, "SOUND", ReplySoundError)
	case 'l':
		return analogReply(r.light, "LIGHT", ReplyLightError)
	case 'e':
		return r.environment(now)
	case '?':
		return Result{Reply: HelpText}
	default:
		return Result{Forward: true}
	}
}

func (r *Router) arm(st *State, now time.Time) Result {
	if st.Mode != ModeOn {
		return reply(ReplySystemOff)
	}

	res := reply(ReplyAlarmOn)
	if !st.Armed {
		st.Armed = true
		res.Event = &Event{Timestamp: now, Type: EventAlarmOn, Mode: st.Mode, Armed: true}
	}
	return res
}

func (r *Router) disarm(st *State, now time.Time) Result {
	res := reply(ReplyAlarmOff)
	if st.Armed {
		st.Armed = false
		res.Event = &Event{Timestamp: now, Type: EventAlarmOff, Mode: st.Mode, Armed: false}
	}
	return res
}

func (r *Router) temperature(now time.Time) Result {
	rd, err := r.climate.Refresh(now)
	if err != nil {
		return reply(ReplyClimateError)
	}
	return reply(fmt.Sprintf("TEMP=%.1f C, HUM=%.1f %%", rd.Temperature, rd.Humidity))
}

func (r *Router) environment(now time.Time) Result {
	rd, err := r.climate.Refresh(now)
	if err != nil {
		return reply(ReplyClimateError)
	}
	sound, err := ReadAnalog(r.sound)
	if err != nil {
		return reply(ReplySoundError)
	}
	light, err := ReadAnalog(r.light)
	if err != nil {
		return reply(ReplyLightError)
	}
	return reply(fmt.Sprintf("ENV: TEMP=%.1f C, HUM=%.1f %%, SOUND=%d%%, LIGHT=%d%%",
		rd.Temperature, rd.Humidity, sound.Percent, light.Percent))
}

func analogReply(s AnalogSensor, name, failure string) Result {
	lvl, err := ReadAnalog(s)
	if err != nil {
		return reply(failure)
	}
	return reply(fmt.Sprintf("%s_RAW=%d, %s_PERCENT=%d%%", name, lvl.Raw, name, lvl.Percent))
}

func reply(lines ...string) Result {
	return Result{Reply: lines}
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

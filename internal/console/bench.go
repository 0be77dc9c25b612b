// Package console is a bench simulator: the real control loop driven by
// in-memory links, button, actuators and sensors, operated from a shell.
package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/homesec-node/internal/config"
	"github.com/sweeney/homesec-node/internal/gpio"
	"github.com/sweeney/homesec-node/internal/link"
	"github.com/sweeney/homesec-node/internal/logic"
	"github.com/sweeney/homesec-node/internal/mqtt"
	"github.com/sweeney/homesec-node/internal/node"
	"github.com/sweeney/homesec-node/internal/sensor"
	"github.com/sweeney/homesec-node/internal/status"
)

// Simulated sensor values at power-up.
const (
	InitialTemperature = 21.0
	InitialHumidity    = 45.0
	InitialSound       = 200
	InitialLight       = 600
)

// Bench is a node wired entirely to fakes.
type Bench struct {
	Wireless  *link.FakeLink
	Bridge    *link.FakeLink
	Button    *gpio.FakeButton
	Outputs   *gpio.FakeOutputs
	Climate   *sensor.FakeClimate
	Sound     *sensor.FakeAnalog
	Light     *sensor.FakeAnalog
	Publisher *mqtt.FakePublisher
	Tracker   *status.Tracker
	Node      *node.Node
}

// NewBench builds and boots a simulated node using the timing in cfg.
func NewBench(ctx context.Context, cfg *config.Config, start time.Time) *Bench {
	b := &Bench{
		Wireless:  link.NewFakeLink(),
		Bridge:    link.NewFakeLink(),
		Button:    gpio.NewFakeButton(),
		Outputs:   gpio.NewFakeOutputs(),
		Climate:   sensor.NewFakeClimate(InitialTemperature, InitialHumidity),
		Sound:     sensor.NewFakeAnalog(InitialSound),
		Light:     sensor.NewFakeAnalog(InitialLight),
		Publisher: mqtt.NewFakePublisher(),
		Tracker:   status.NewTracker(start, status.ConfigFrom(cfg, "")),
	}
	b.Publisher.Connected = true

	b.Node = node.New(ctx, node.Deps{
		Wireless:   b.Wireless,
		Bridge:     b.Bridge,
		Button:     b.Button,
		Outputs:    b.Outputs,
		Climate:    b.Climate,
		Sound:      b.Sound,
		Light:      b.Light,
		Publisher:  b.Publisher,
		MQTTStatus: b.Publisher,
		Tracker:    b.Tracker,
	}, node.OptionsFromConfig(cfg))
	b.Node.Boot(start)
	return b
}

// Send queues text as if the app had sent it.
func (b *Bench) Send(text string) {
	b.Wireless.Inject([]byte(text))
}

// Camera queues text as if the camera bridge had sent it.
func (b *Bench) Camera(text string) {
	b.Bridge.Inject([]byte(text))
}

// Transcript returns and clears what the node sent to the app and to the
// camera bridge.
func (b *Bench) Transcript() (app, camera []byte) {
	return b.Wireless.Take(), b.Bridge.Take()
}

// Describe renders a frame for the console.
func Describe(f logic.Frame) string {
	return fmt.Sprintf("buzzer=%s red=%s green=%s", onOff(f.Buzzer), onOff(f.Primary), onOff(f.Secondary))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// DecodeText joins shell arguments and expands escapes like \r and \n.
func DecodeText(args []string) string {
	raw := strings.Join(args, " ")
	if s, err := strconv.Unquote(`"` + strings.ReplaceAll(raw, `"`, `\"`) + `"`); err == nil {
		return s
	}
	return raw
}

// ParseClimate parses "TEMP HUM".
func ParseClimate(args []string) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("want TEMP HUM, got %d args", len(args))
	}
	t, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("temperature: %w", err)
	}
	h, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("humidity: %w", err)
	}
	return t, h, nil
}

// ParseRaw parses an analog sample in [0, logic.AnalogMax].
func ParseRaw(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("want RAW, got %d args", len(args))
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, err
	}
	if v < 0 || v > logic.AnalogMax {
		return 0, fmt.Errorf("raw %d out of range 0-%d", v, logic.AnalogMax)
	}
	return v, nil
}

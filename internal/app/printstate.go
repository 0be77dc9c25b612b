package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sweeney/homesec-node/internal/gpio"
	"github.com/sweeney/homesec-node/internal/logger"
	"github.com/sweeney/homesec-node/internal/logic"
	"github.com/sweeney/homesec-node/internal/sensor"
)

const probeTimeout = 2 * time.Second

// BoardState is a one-shot reading of the inputs.
type BoardState struct {
	ButtonLevel bool
	Climate     logic.Reading
	ClimateErr  error
	Sound       logic.AnalogLevel
	SoundErr    error
	Light       logic.AnalogLevel
	LightErr    error
}

// PrintState reads every input once and writes a summary to w.
func PrintState(ctx context.Context, opts *Options, w io.Writer) error {
	ctx = logger.WithName(ctx, "print-state")

	cfg, err := LoadConfig(ctx, opts)
	if err != nil {
		return err
	}

	button, err := gpio.NewRealButton(pins(cfg.GPIO))
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}
	defer button.Close()

	level, err := button.Level()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}

	board, err := sensor.Open(ctx, cfg.Sensors)
	if err != nil {
		return fmt.Errorf("init sensors: %w", err)
	}
	defer board.Close()

	st := ReadBoard(ctx, level, board.Climate, board.Sound, board.Light, time.Now())
	return WriteState(w, st)
}

// ReadBoard samples each sensor once.
func ReadBoard(ctx context.Context, level bool, climate logic.ClimateSensor, sound, light logic.AnalogSensor, now time.Time) BoardState {
	st := BoardState{ButtonLevel: level}

	cache := logic.NewSensorCache(timedClimate{ctx, climate}, logic.DefaultSensorInterval)
	st.Climate, st.ClimateErr = cache.Refresh(now)

	st.Sound, st.SoundErr = logic.ReadAnalog(sound)
	st.Light, st.LightErr = logic.ReadAnalog(light)
	return st
}

// WriteState renders st one line per input.
func WriteState(w io.Writer, st BoardState) error {
	button := "released"
	if st.ButtonLevel == logic.PressedLevel {
		button = "pressed"
	}

	lines := []string{fmt.Sprintf("BUTTON: %s", button)}

	if st.ClimateErr != nil {
		lines = append(lines, fmt.Sprintf("CLIMATE: error: %v", st.ClimateErr))
	} else {
		lines = append(lines, fmt.Sprintf("CLIMATE: TEMP=%.1f C, HUM=%.1f %%", st.Climate.Temperature, st.Climate.Humidity))
	}

	lines = append(lines, analogLine("SOUND", st.Sound, st.SoundErr), analogLine("LIGHT", st.Light, st.LightErr))

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func analogLine(name string, lvl logic.AnalogLevel, err error) string {
	if err != nil {
		return fmt.Sprintf("%s: error: %v", name, err)
	}
	return fmt.Sprintf("%s: RAW=%d, PERCENT=%d%%", name, lvl.Raw, lvl.Percent)
}

// timedClimate gives up on a sensor that hangs the bus.
type timedClimate struct {
	ctx context.Context
	c   logic.ClimateSensor
}

func (t timedClimate) Sense() (float64, float64, error) {
	return sensor.Probe(t.ctx, t.c, probeTimeout)
}

//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/homesec-node/internal/logic"
)

// RealButton reads the push-button from hardware.
type RealButton struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealButton requests the button line as an input with pull-up.
func NewRealButton(p Pins) (*RealButton, error) {
	chip, err := gpiocdev.NewChip(p.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", p.Chip, err)
	}

	line, err := chip.RequestLine(p.Button, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", p.Button, err)
	}

	return &RealButton{chip: chip, line: line}, nil
}

// Level returns the raw line level.
func (b *RealButton) Level() (bool, error) {
	v, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return v != 0, nil
}

// Close releases the line and chip.
func (b *RealButton) Close() error {
	var errs []error
	if b.line != nil {
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RealOutputs drives buzzer, red and green lines as one request.
type RealOutputs struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
}

// NewRealOutputs requests the three actuator lines as outputs, initially low.
func NewRealOutputs(p Pins) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip(p.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", p.Chip, err)
	}

	offsets := []int{p.Buzzer, p.Red, p.Green}
	lines, err := chip.RequestLines(offsets, gpiocdev.AsOutput(0, 0, 0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request output pins %v: %w", offsets, err)
	}

	return &RealOutputs{chip: chip, lines: lines}, nil
}

// Write sets all three lines at once.
func (o *RealOutputs) Write(f logic.Frame) error {
	if err := o.lines.SetValues(frameValues(f)); err != nil {
		return fmt.Errorf("set outputs: %w", err)
	}
	return nil
}

// Close drives every line low, then reconfigures them as inputs so the
// buzzer stays quiet across a restart.
func (o *RealOutputs) Close() error {
	var errs []error
	if o.lines != nil {
		if err := o.lines.SetValues([]int{0, 0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("clear outputs: %w", err))
		}
		if err := o.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure outputs: %w", err))
		}
		if err := o.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close outputs: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}

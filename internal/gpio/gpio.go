// Package gpio drives the node's push-button input and its three actuator
// lines (buzzer, red LED, green LED).
// The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing and bench simulation without hardware.
package gpio

import "github.com/sweeney/homesec-node/internal/logic"

// Button reads the raw level of the push-button line.
type Button interface {
	// Level returns the raw electrical level: true = high.
	// The button is wired active-low, so a press reads false.
	Level() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Outputs drives the actuator lines.
type Outputs interface {
	// Write sets buzzer, red and green lines from f.
	Write(f logic.Frame) error

	// Close releases GPIO resources.
	Close() error
}

// Pins names the line offsets on one chip.
type Pins struct {
	Chip   string
	Button int
	Buzzer int
	Red    int
	Green  int
}

func frameValues(f logic.Frame) []int {
	return []int{bit(f.Buzzer), bit(f.Primary), bit(f.Secondary)}
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

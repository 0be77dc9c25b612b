package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/sweeney/homesec-node/internal/config"
	"github.com/sweeney/homesec-node/internal/logger"
	"github.com/sweeney/homesec-node/internal/logic"
)

// adcRange is the programmable gain range requested from the ADC; it must
// cover the analog reference.
const (
	adcRange = 4096 * physic.MilliVolt
	adcRate  = 128 * physic.Hertz
)

// ErrUnavailable is returned by sensors that failed to initialize.
var ErrUnavailable = errors.New("sensor unavailable")

// Board owns the I2C bus and the devices on it.
type Board struct {
	bus     i2c.BusCloser
	climate *bmxx80.Dev
	adc     *ads1x15.Dev

	Climate logic.ClimateSensor
	Sound   logic.AnalogSensor
	Light   logic.AnalogSensor
}

// Open initializes the host drivers and the I2C bus. A device that does not
// answer is replaced by a sensor that always fails, so the node keeps running
// and replies with the sensor error instead.
func Open(ctx context.Context, cfg config.SensorsConfig) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2CBus, err)
	}

	b := &Board{
		bus:     bus,
		Climate: missingClimate{},
		Sound:   missingAnalog{},
		Light:   missingAnalog{},
	}

	dev, err := bmxx80.NewI2C(bus, cfg.ClimateAddr, &bmxx80.DefaultOpts)
	if err != nil {
		logger.WarnKV(ctx, "climate sensor unavailable", "addr", fmt.Sprintf("0x%02x", cfg.ClimateAddr), "error", err)
	} else {
		b.climate = dev
		b.Climate = &Climate{dev: dev}
	}

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: cfg.ADCAddr})
	if err != nil {
		logger.WarnKV(ctx, "adc unavailable", "addr", fmt.Sprintf("0x%02x", cfg.ADCAddr), "error", err)
		return b, nil
	}
	b.adc = adc

	if s, err := newAnalog(adc, cfg.SoundChannel, cfg.VRef); err != nil {
		logger.WarnKV(ctx, "sound channel unavailable", "channel", cfg.SoundChannel, "error", err)
	} else {
		b.Sound = s
	}

	if s, err := newAnalog(adc, cfg.LightChannel, cfg.VRef); err != nil {
		logger.WarnKV(ctx, "light channel unavailable", "channel", cfg.LightChannel, "error", err)
	} else {
		b.Light = s
	}

	return b, nil
}

// Close halts the devices and releases the bus.
func (b *Board) Close() error {
	var errs []error
	for _, s := range []logic.AnalogSensor{b.Sound, b.Light} {
		if a, ok := s.(*Analog); ok {
			if err := a.pin.Halt(); err != nil {
				errs = append(errs, fmt.Errorf("halt adc pin: %w", err))
			}
		}
	}
	if b.adc != nil {
		if err := b.adc.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt adc: %w", err))
		}
	}
	if b.climate != nil {
		if err := b.climate.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt climate sensor: %w", err))
		}
	}
	if err := b.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close i2c bus: %w", err))
	}
	return errors.Join(errs...)
}

// Climate adapts a BME280 to logic.ClimateSensor.
type Climate struct {
	dev *bmxx80.Dev
}

// Sense takes one measurement.
func (c *Climate) Sense() (float64, float64, error) {
	var env physic.Env
	if err := c.dev.Sense(&env); err != nil {
		return math.NaN(), math.NaN(), fmt.Errorf("sense: %w", err)
	}
	return envReading(env)
}

// envReading converts periph units to degrees Celsius and percent.
// Humidity is fixed point at 0.00001 %rH.
func envReading(env physic.Env) (float64, float64, error) {
	return env.Temperature.Celsius(), float64(env.Humidity) / float64(physic.PercentRH), nil
}

// Analog adapts one ADC channel to logic.AnalogSensor, scaled to 0..1023.
type Analog struct {
	pin  ads1x15.PinADC
	vref float64
}

func newAnalog(adc *ads1x15.Dev, channel int, vref float64) (*Analog, error) {
	pin, err := adc.PinForChannel(ads1x15.Channel(channel), adcRange, adcRate, ads1x15.SaveEnergy)
	if err != nil {
		return nil, err
	}
	return &Analog{pin: pin, vref: vref}, nil
}

// Sample reads one conversion.
func (a *Analog) Sample() (int, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("read adc: %w", err)
	}
	return scale(s, a.vref), nil
}

// scale maps a voltage in [0, vref] to [0, AnalogMax], clamping outside.
func scale(s analog.Sample, vref float64) int {
	if vref <= 0 {
		return 0
	}
	v := float64(s.V) / float64(physic.Volt)
	raw := int(math.Round(v / vref * logic.AnalogMax))
	switch {
	case raw < 0:
		return 0
	case raw > logic.AnalogMax:
		return logic.AnalogMax
	}
	return raw
}

type missingClimate struct{}

func (missingClimate) Sense() (float64, float64, error) {
	return math.NaN(), math.NaN(), ErrUnavailable
}

type missingAnalog struct{}

func (missingAnalog) Sample() (int, error) {
	return 0, ErrUnavailable
}

// Probe takes a single climate reading with a deadline, for print-state.
func Probe(ctx context.Context, c logic.ClimateSensor, timeout time.Duration) (float64, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		t, h float64
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		t, h, err := c.Sense()
		ch <- result{t, h, err}
	}()

	select {
	case r := <-ch:
		return r.t, r.h, r.err
	case <-ctx.Done():
		return math.NaN(), math.NaN(), ctx.Err()
	}
}

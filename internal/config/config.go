package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/homesec-node/internal/logger"
)

// Config holds every tunable of the node.
type Config struct {
	// Wireless is the link to the mobile app.
	Wireless SerialConfig `yaml:"wireless"`
	// Bridge is the link to the camera module.
	Bridge  SerialConfig  `yaml:"bridge"`
	GPIO    GPIOConfig    `yaml:"gpio"`
	Sensors SensorsConfig `yaml:"sensors"`
	Timing  TimingConfig  `yaml:"timing"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	// HTTPAddr is the status page listen address. Empty disables it.
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`
}

// SerialConfig describes one serial port.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// GPIOConfig names the character device and line offsets.
type GPIOConfig struct {
	Chip   string `yaml:"chip"`
	Button int    `yaml:"button"`
	Buzzer int    `yaml:"buzzer"`
	Red    int    `yaml:"red"`
	Green  int    `yaml:"green"`
}

// SensorsConfig describes the I2C sensors.
type SensorsConfig struct {
	// I2CBus is the periph bus name; empty picks the first bus.
	I2CBus       string  `yaml:"i2c_bus"`
	ClimateAddr  uint16  `yaml:"climate_addr"`
	ADCAddr      uint16  `yaml:"adc_addr"`
	SoundChannel int     `yaml:"sound_channel"`
	LightChannel int     `yaml:"light_channel"`
	VRef         float64 `yaml:"vref"`
}

// TimingConfig holds loop and state machine durations.
type TimingConfig struct {
	Tick             time.Duration `yaml:"tick"`
	Debounce         time.Duration `yaml:"debounce"`
	Blink            time.Duration `yaml:"blink"`
	SensorInterval   time.Duration `yaml:"sensor_interval"`
	StartupHalfPhase time.Duration `yaml:"startup_half_phase"`
	// NonblockingStartup plays the startup animation across ticks
	// instead of holding the loop for its whole duration.
	NonblockingStartup bool `yaml:"nonblocking_startup"`
}

// MQTTConfig holds telemetry settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	// WSBroker is the websocket URL the status page uses for live updates.
	// "=broker" derives it from Broker, "off" disables it.
	WSBroker string `yaml:"ws_broker"`
}

const (
	// DefaultConfigFilename is the settings file looked up when no path is given.
	DefaultConfigFilename = "homesec-node.yaml"

	// DefaultFilePermissions is the mode used when saving settings.
	DefaultFilePermissions = 0o600

	// WSBrokerDerive derives the websocket URL from the TCP broker.
	WSBrokerDerive = "=broker"
	// WSBrokerOff disables the live status page.
	WSBrokerOff = "off"

	maxADCChannel = 3
)

var (
	errConfigIsNotSet = errors.New("configuration is not set")

	// ErrInvalidSerial is returned for a serial port without device or speed.
	ErrInvalidSerial = errors.New("invalid serial port")
	// ErrInvalidGPIO is returned for negative or clashing line offsets.
	ErrInvalidGPIO = errors.New("invalid gpio line")
	// ErrInvalidSensor is returned for bad sensor addressing.
	ErrInvalidSensor = errors.New("invalid sensor setting")
	// ErrInvalidTiming is returned for non-positive durations.
	ErrInvalidTiming = errors.New("invalid timing")
	// ErrInvalidLogLevel is returned for an unknown log level.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidBroker is returned for an unparsable broker URL.
	ErrInvalidBroker = errors.New("invalid mqtt broker")
	// ErrInvalidHTTPAddr is returned for an unusable listen address.
	ErrInvalidHTTPAddr = errors.New("invalid http address")
)

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Wireless: SerialConfig{Device: "/dev/ttyS0", Baud: 9600},
		Bridge:   SerialConfig{Device: "/dev/ttyUSB0", Baud: 115200},
		GPIO: GPIOConfig{
			Chip:   "gpiochip0",
			Button: 17,
			Buzzer: 18,
			Red:    22,
			Green:  27,
		},
		Sensors: SensorsConfig{
			ClimateAddr:  0x76,
			ADCAddr:      0x48,
			SoundChannel: 0,
			LightChannel: 1,
			VRef:         3.3,
		},
		Timing: TimingConfig{
			Tick:             10 * time.Millisecond,
			Debounce:         50 * time.Millisecond,
			Blink:            300 * time.Millisecond,
			SensorInterval:   2 * time.Second,
			StartupHalfPhase: 750 * time.Millisecond,
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://127.0.0.1:1883",
			Heartbeat: 15 * time.Minute,
			WSBroker:  WSBrokerDerive,
		},
		HTTPAddr: ":8080",
		LogLevel: "info",
	}
}

// Load reads settings from path over the defaults and validates them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills zero-valued fields with defaults and rejects bad values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	def := Default()

	if err := validateSerial("wireless", &cfg.Wireless, def.Wireless); err != nil {
		return err
	}

	if err := validateSerial("bridge", &cfg.Bridge, def.Bridge); err != nil {
		return err
	}

	if err := validateGPIO(&cfg.GPIO, def.GPIO); err != nil {
		return err
	}

	if err := validateSensors(&cfg.Sensors, def.Sensors); err != nil {
		return err
	}

	if err := validateTiming(&cfg.Timing, def.Timing); err != nil {
		return err
	}

	if cfg.MQTT.Broker != "" {
		u, err := url.Parse(cfg.MQTT.Broker)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidBroker, cfg.MQTT.Broker)
		}
	}

	if cfg.MQTT.Heartbeat < 0 {
		return fmt.Errorf("%w: mqtt.heartbeat must not be negative", ErrInvalidTiming)
	}

	if cfg.MQTT.WSBroker == "" {
		cfg.MQTT.WSBroker = WSBrokerOff
	}

	if cfg.HTTPAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.HTTPAddr); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidHTTPAddr, err)
		}
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.LogLevel)
	}

	return nil
}

func validateSerial(name string, s *SerialConfig, def SerialConfig) error {
	if s.Device == "" {
		s.Device = def.Device
	}

	if s.Baud == 0 {
		s.Baud = def.Baud
	}

	if s.Baud < 0 {
		return fmt.Errorf("%w: %s baud %d", ErrInvalidSerial, name, s.Baud)
	}

	return nil
}

func validateGPIO(g *GPIOConfig, def GPIOConfig) error {
	if g.Chip == "" {
		g.Chip = def.Chip
	}

	lines := map[string]int{
		"button": g.Button,
		"buzzer": g.Buzzer,
		"red":    g.Red,
		"green":  g.Green,
	}

	seen := make(map[int]string, len(lines))
	for name, offset := range lines {
		if offset < 0 {
			return fmt.Errorf("%w: %s offset %d", ErrInvalidGPIO, name, offset)
		}

		if other, dup := seen[offset]; dup {
			return fmt.Errorf("%w: %s and %s share offset %d", ErrInvalidGPIO, name, other, offset)
		}

		seen[offset] = name
	}

	return nil
}

func validateSensors(s *SensorsConfig, def SensorsConfig) error {
	if s.ClimateAddr == 0 {
		s.ClimateAddr = def.ClimateAddr
	}

	if s.ADCAddr == 0 {
		s.ADCAddr = def.ADCAddr
	}

	if s.VRef == 0 {
		s.VRef = def.VRef
	}

	if s.VRef < 0 {
		return fmt.Errorf("%w: vref %v", ErrInvalidSensor, s.VRef)
	}

	for name, ch := range map[string]int{"sound_channel": s.SoundChannel, "light_channel": s.LightChannel} {
		if ch < 0 || ch > maxADCChannel {
			return fmt.Errorf("%w: %s %d", ErrInvalidSensor, name, ch)
		}
	}

	if s.SoundChannel == s.LightChannel {
		return fmt.Errorf("%w: sound and light share channel %d", ErrInvalidSensor, s.SoundChannel)
	}

	return nil
}

func validateTiming(t *TimingConfig, def TimingConfig) error {
	fields := []struct {
		name string
		val  *time.Duration
		def  time.Duration
	}{
		{"tick", &t.Tick, def.Tick},
		{"debounce", &t.Debounce, def.Debounce},
		{"blink", &t.Blink, def.Blink},
		{"sensor_interval", &t.SensorInterval, def.SensorInterval},
		{"startup_half_phase", &t.StartupHalfPhase, def.StartupHalfPhase},
	}

	for _, f := range fields {
		if *f.val == 0 {
			*f.val = f.def
		}

		if *f.val < 0 {
			return fmt.Errorf("%w: %s %v", ErrInvalidTiming, f.name, *f.val)
		}
	}

	return nil
}

package config

import (
	"bytes"
	"io"
	"time"

	"aqmonitor-go/bus"
	"aqmonitor-go/errcode"

	"gopkg.in/yaml.v3"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// Config is the boot-time configuration of one board.
type Config struct {
	Board     string          `yaml:"board"`
	I2C       I2CConfig       `yaml:"i2c"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Power     PowerConfig     `yaml:"power"`
	Display   DisplayConfig   `yaml:"display"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
}

type I2CConfig struct {
	FrequencyHz uint32 `yaml:"frequency_hz"`
}

// SensorConfig drives the air-quality acquisition cycle.
type SensorConfig struct {
	Interval      time.Duration `yaml:"interval"`
	BurstSize     int           `yaml:"burst_size"`
	BurstSpacing  time.Duration `yaml:"burst_spacing"`
	WarmupTimeout time.Duration `yaml:"warmup_timeout"` // max wait for the gas sensor to leave warm-up
	Calibrate     bool          `yaml:"calibrate"`      // humidity drift correction
}

// PowerConfig drives the VSYS battery monitor. Voltages are in millivolts.
type PowerConfig struct {
	Interval        time.Duration `yaml:"interval"`
	Window          int           `yaml:"window"`
	BurstSpacing    time.Duration `yaml:"burst_spacing"` // between seeding samples
	ChargeOnMilliV  int32         `yaml:"charge_on_mv"`
	ChargeOffMilliV int32         `yaml:"charge_off_mv"`
	EmptyMilliV     int32         `yaml:"empty_mv"`
	FullMilliV      int32         `yaml:"full_mv"`
	VRefMilliV      int32         `yaml:"vref_mv"`
	Divider         int32         `yaml:"divider"`
}

type DisplayConfig struct {
	ModeInterval time.Duration `yaml:"mode_interval"`
	Address      uint16        `yaml:"address"`
	Width        int16         `yaml:"width"`
	Height       int16         `yaml:"height"`
}

type WatchdogConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	CheckInterval time.Duration `yaml:"check_interval"`

	// HardwareTimeout arms the MCU watchdog; zero leaves it off.
	HardwareTimeout time.Duration `yaml:"hardware_timeout"`
}

type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"` // zero disables the status line
}

// Default returns the configuration used for any field a board document
// leaves out.
func Default() Config {
	return Config{
		Board: "pico",
		I2C:   I2CConfig{FrequencyHz: 400_000},
		Sensor: SensorConfig{
			Interval:      5 * time.Minute,
			BurstSize:     5,
			BurstSpacing:  time.Second,
			WarmupTimeout: 3 * time.Minute,
			Calibrate:     true,
		},
		Power: PowerConfig{
			Interval:        4 * time.Second,
			Window:          5,
			BurstSpacing:    20 * time.Millisecond,
			ChargeOnMilliV:  4500,
			ChargeOffMilliV: 4350,
			EmptyMilliV:     2800,
			FullMilliV:      4200,
			VRefMilliV:      3300,
			Divider:         3,
		},
		Display: DisplayConfig{
			ModeInterval: 10 * time.Second,
			Address:      0x3C,
			Width:        128,
			Height:       64,
		},
		Watchdog: WatchdogConfig{
			Timeout:         15 * time.Minute,
			CheckInterval:   time.Second,
			HardwareTimeout: 8 * time.Second,
		},
		Heartbeat: HeartbeatConfig{Interval: time.Minute},
	}
}

// EmbeddedConfigLookup allows overriding how board documents are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// Load resolves the embedded document for board and parses it.
func Load(board string) (Config, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.load", Msg: "no embedded config for board " + board}
	}
	return Parse(raw)
}

// Parse decodes a YAML document over Default and validates the result.
// Unknown keys are rejected.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errcode.Wrap(errcode.InvalidConfig, "config.parse", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidConfig, Op: "config.validate", Msg: msg}
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	s, p, w := c.Sensor, c.Power, c.Watchdog
	switch {
	case s.Interval <= 0 || p.Interval <= 0 || c.Display.ModeInterval <= 0:
		return invalid("intervals must be positive")
	case s.BurstSize < 1 || s.BurstSize > 16:
		return invalid("sensor.burst_size out of range 1..16")
	case s.BurstSpacing < 0 || s.WarmupTimeout < 0:
		return invalid("sensor waits must not be negative")
	case p.BurstSpacing < 0:
		return invalid("power.burst_spacing must not be negative")
	case p.Window < 1 || p.Window > 16:
		return invalid("power.window out of range 1..16")
	case p.ChargeOffMilliV >= p.ChargeOnMilliV:
		return invalid("power.charge_off_mv must be below charge_on_mv")
	case p.EmptyMilliV >= p.FullMilliV:
		return invalid("power.empty_mv must be below full_mv")
	case p.VRefMilliV <= 0 || p.Divider <= 0:
		return invalid("power adc scaling must be positive")
	case w.CheckInterval <= 0 || w.Timeout <= w.CheckInterval:
		return invalid("watchdog.timeout must exceed check_interval")
	case w.Timeout <= s.Interval+s.WarmupTimeout:
		return invalid("watchdog.timeout must exceed one full sensor cycle")
	case w.HardwareTimeout < 0 || (w.HardwareTimeout > 0 && w.HardwareTimeout <= w.CheckInterval):
		return invalid("watchdog.hardware_timeout must exceed check_interval")
	case c.Heartbeat.Interval < 0:
		return invalid("heartbeat.interval must not be negative")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

// ConfigService publishes each section as a retained config/<section>
// message, for diagnostics and late subscribers.
type ConfigService struct {
	Name string
	cfg  Config
}

func NewConfigService(cfg Config) *ConfigService {
	return &ConfigService{Name: serviceName, cfg: cfg}
}

func (s *ConfigService) Config() Config { return s.cfg }

func (s *ConfigService) Publish(conn *bus.Connection) {
	sections := []struct {
		key string
		val any
	}{
		{"i2c", s.cfg.I2C},
		{"sensor", s.cfg.Sensor},
		{"power", s.cfg.Power},
		{"display", s.cfg.Display},
		{"watchdog", s.cfg.Watchdog},
		{"heartbeat", s.cfg.Heartbeat},
	}
	for _, sec := range sections {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, sec.key), sec.val, true))
	}
	println("[config] published board", s.cfg.Board)
}

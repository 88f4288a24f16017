package poll

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/i2cm/ads1115"
)

// Duration wraps time.Duration so settings files can use readable values
// like "100ms" or "1s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Settings is the YAML-loadable description of a polling setup: which
// adapter to use, where the device sits on the bus and how it should be
// configured.
type Settings struct {
	// Adapter is one of mcp2221, generic, nanopi, bitbang.
	Adapter string `yaml:"adapter"`
	// Device is the i2c-dev path for the generic adapter.
	Device string `yaml:"device"`
	// Chip, SDA, SCL, PullUp and SpeedHz configure the bit-bang adapter.
	Chip    string `yaml:"chip"`
	SDA     int    `yaml:"sda"`
	SCL     int    `yaml:"scl"`
	PullUp  bool   `yaml:"pull_up"`
	SpeedHz uint   `yaml:"speed_hz"`
	// Address selects the ADDR pin wiring: gnd, vdd, sda or scl.
	Address     string   `yaml:"address"`
	Interval    Duration `yaml:"interval"`
	SettleDelay Duration `yaml:"settle_delay"`
	// Channel is the single-ended input 0..3; Differential overrides it
	// with an input pair like "0-1" or "2-3".
	Channel      int    `yaml:"channel"`
	Differential string `yaml:"differential"`
	// Gain is the full-scale range in volts, e.g. "4.096".
	Gain string `yaml:"gain"`
	// DataRate in samples per second (8..860).
	DataRate int `yaml:"data_rate"`
	// Mode is continuous or single-shot.
	Mode string `yaml:"mode"`
}

func DefaultSettings() Settings {
	return Settings{
		Adapter:     "mcp2221",
		Device:      "/dev/i2c-1",
		Chip:        "gpiochip0",
		SDA:         0,
		SCL:         2,
		PullUp:      true,
		SpeedHz:     100_000,
		Address:     "gnd",
		Interval:    Duration(100 * time.Millisecond),
		SettleDelay: Duration(100 * time.Millisecond),
		Channel:     0,
		Gain:        "2.048",
		DataRate:    128,
		Mode:        "continuous",
	}
}

// LoadSettings reads a YAML settings file over the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	raw, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("could not read settings file: %w", err)
	}
	err = yaml.Unmarshal(raw, &settings)
	if err != nil {
		return settings, fmt.Errorf("could not parse settings file: %w", err)
	}
	return settings, nil
}

// DeviceAddress resolves the ADDR pin wiring name to the 7-bit bus address.
func (s Settings) DeviceAddress() (byte, error) {
	switch strings.ToLower(s.Address) {
	case "", "gnd":
		return ads1115.AddrGND, nil
	case "vdd":
		return ads1115.AddrVDD, nil
	case "sda":
		return ads1115.AddrSDA, nil
	case "scl":
		return ads1115.AddrSCL, nil
	}
	return 0, fmt.Errorf("unknown address variant %q (want gnd, vdd, sda or scl)", s.Address)
}

// ADCConfig assembles the device configuration from the named settings.
func (s Settings) ADCConfig() (ads1115.Config, error) {
	cfg := ads1115.DefaultConfig()
	mux, err := s.mux()
	if err != nil {
		return cfg, err
	}
	cfg.Mux = mux
	switch strings.TrimSuffix(strings.ToLower(s.Gain), "v") {
	case "", "2.048":
		cfg.Gain = ads1115.Gain2V
	case "6.144":
		cfg.Gain = ads1115.Gain6V
	case "4.096":
		cfg.Gain = ads1115.Gain4V
	case "1.024":
		cfg.Gain = ads1115.Gain1V
	case "0.512":
		cfg.Gain = ads1115.Gain0V5
	case "0.256":
		cfg.Gain = ads1115.Gain0V25
	default:
		return cfg, fmt.Errorf("unknown gain %q", s.Gain)
	}
	switch s.DataRate {
	case 0, 128:
		cfg.DataRate = ads1115.DataRate128
	case 8:
		cfg.DataRate = ads1115.DataRate8
	case 16:
		cfg.DataRate = ads1115.DataRate16
	case 32:
		cfg.DataRate = ads1115.DataRate32
	case 64:
		cfg.DataRate = ads1115.DataRate64
	case 250:
		cfg.DataRate = ads1115.DataRate250
	case 475:
		cfg.DataRate = ads1115.DataRate475
	case 860:
		cfg.DataRate = ads1115.DataRate860
	default:
		return cfg, fmt.Errorf("unsupported data rate %d sps", s.DataRate)
	}
	switch strings.ToLower(s.Mode) {
	case "", "continuous":
		cfg.Mode = ads1115.ModeContinuous
	case "single-shot", "single":
		cfg.Mode = ads1115.ModeSingleShot
	default:
		return cfg, fmt.Errorf("unknown mode %q", s.Mode)
	}
	return cfg, nil
}

func (s Settings) mux() (ads1115.Mux, error) {
	if s.Differential != "" {
		switch s.Differential {
		case "0-1":
			return ads1115.Mux01, nil
		case "0-3":
			return ads1115.Mux03, nil
		case "1-3":
			return ads1115.Mux13, nil
		case "2-3":
			return ads1115.Mux23, nil
		}
		return 0, fmt.Errorf("unknown differential pair %q", s.Differential)
	}
	switch s.Channel {
	case 0:
		return ads1115.Mux0GND, nil
	case 1:
		return ads1115.Mux1GND, nil
	case 2:
		return ads1115.Mux2GND, nil
	case 3:
		return ads1115.Mux3GND, nil
	}
	return 0, fmt.Errorf("channel %d out of range (0..3)", s.Channel)
}

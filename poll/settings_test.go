package poll

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2cm/ads1115"
)

const sampleSettings = `adapter: bitbang
chip: gpiochip1
sda: 17
scl: 27
pull_up: true
speed_hz: 400000
address: scl
interval: 250ms
settle_delay: 1s
channel: 2
gain: "4.096"
data_rate: 860
mode: single-shot
`

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poll.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSettings), 0o600))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "bitbang", settings.Adapter)
	assert.Equal(t, "gpiochip1", settings.Chip)
	assert.Equal(t, 17, settings.SDA)
	assert.Equal(t, 27, settings.SCL)
	assert.True(t, settings.PullUp)
	assert.Equal(t, uint(400_000), settings.SpeedHz)
	assert.Equal(t, Duration(250*time.Millisecond), settings.Interval)
	assert.Equal(t, Duration(time.Second), settings.SettleDelay)
	// defaults survive for fields the file does not set
	assert.Equal(t, "/dev/i2c-1", settings.Device)

	addr, err := settings.DeviceAddress()
	require.NoError(t, err)
	assert.Equal(t, ads1115.AddrSCL, addr)

	cfg, err := settings.ADCConfig()
	require.NoError(t, err)
	assert.Equal(t, ads1115.Mux2GND, cfg.Mux)
	assert.Equal(t, ads1115.Gain4V, cfg.Gain)
	assert.Equal(t, ads1115.DataRate860, cfg.DataRate)
	assert.Equal(t, ads1115.ModeSingleShot, cfg.Mode)
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSettings_DeviceAddress(t *testing.T) {
	tests := []struct {
		given    string
		expected byte
	}{
		{"", ads1115.AddrGND},
		{"gnd", ads1115.AddrGND},
		{"VDD", ads1115.AddrVDD},
		{"sda", ads1115.AddrSDA},
		{"scl", ads1115.AddrSCL},
	}
	for _, test := range tests {
		t.Run(test.given, func(t *testing.T) {
			addr, err := Settings{Address: test.given}.DeviceAddress()
			assert.NoError(t, err)
			assert.Equal(t, test.expected, addr)
		})
	}
	_, err := Settings{Address: "vcc"}.DeviceAddress()
	assert.Error(t, err)
}

func TestSettings_ADCConfig_Differential(t *testing.T) {
	settings := DefaultSettings()
	settings.Differential = "2-3"
	cfg, err := settings.ADCConfig()
	assert.NoError(t, err)
	assert.Equal(t, ads1115.Mux23, cfg.Mux)
}

func TestSettings_ADCConfig_Invalid(t *testing.T) {
	settings := DefaultSettings()
	settings.Gain = "3.3"
	_, err := settings.ADCConfig()
	assert.Error(t, err)

	settings = DefaultSettings()
	settings.DataRate = 1000
	_, err = settings.ADCConfig()
	assert.Error(t, err)

	settings = DefaultSettings()
	settings.Channel = 7
	_, err = settings.ADCConfig()
	assert.Error(t, err)

	settings = DefaultSettings()
	settings.Mode = "burst"
	_, err = settings.ADCConfig()
	assert.Error(t, err)
}

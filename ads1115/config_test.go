package ads1115

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Uint16(t *testing.T) {
	tests := []struct {
		cfg      Config
		expected uint16
	}{
		// power-on default register value from the datasheet
		{DefaultConfig(), 0x0583},
		{
			Config{
				TriggerSingleShot: true,
				Mux:               Mux01,
				Gain:              Gain2V,
				Mode:              ModeSingleShot,
				DataRate:          DataRate128,
				Queue:             QueueDisable,
			},
			0x8583,
		},
		{
			Config{
				TriggerSingleShot: true,
				Mux:               Mux0GND,
				Gain:              Gain4V,
				Mode:              ModeSingleShot,
				DataRate:          DataRate860,
				Queue:             QueueDisable,
			},
			0xC3E3,
		},
		{
			Config{
				Mux:            Mux23,
				Gain:           Gain0V25,
				Mode:           ModeContinuous,
				DataRate:       DataRate8,
				ComparatorMode: ComparatorWindow,
				Polarity:       AlertActiveHigh,
				Latch:          AlertLatching,
				Queue:          QueueAfterFour,
			},
			0x3A1E,
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%#04x", test.expected), func(t *testing.T) {
			assert.Equal(t, test.expected, test.cfg.Uint16())
		})
	}
}

func TestParseConfig_RoundTrip(t *testing.T) {
	cfg := Config{
		Mux:            Mux3GND,
		Gain:           Gain1V,
		Mode:           ModeSingleShot,
		DataRate:       DataRate475,
		ComparatorMode: ComparatorWindow,
		Polarity:       AlertActiveLow,
		Latch:          AlertNonLatching,
		Queue:          QueueAfterTwo,
	}
	assert.Equal(t, cfg, ParseConfig(cfg.Uint16()))
}

func TestParseConfig_IgnoresOSBit(t *testing.T) {
	parsed := ParseConfig(0x8583)
	assert.False(t, parsed.TriggerSingleShot)
	assert.Equal(t, Mux01, parsed.Mux)
	assert.Equal(t, Gain2V, parsed.Gain)
	assert.Equal(t, ModeSingleShot, parsed.Mode)
	assert.Equal(t, DataRate128, parsed.DataRate)
	assert.Equal(t, QueueDisable, parsed.Queue)
}

func TestGain_FullScale(t *testing.T) {
	assert.Equal(t, 6.144, Gain6V.FullScale())
	assert.Equal(t, 2.048, Gain2V.FullScale())
	assert.Equal(t, 0.256, Gain0V25.FullScale())
}

func TestConfig_Voltage(t *testing.T) {
	cfg := Config{Gain: Gain4V}
	assert.InDelta(t, 2.048, cfg.Voltage(16384), 1e-9)
	assert.InDelta(t, -4.096, cfg.Voltage(-32768), 1e-9)
	assert.InDelta(t, 0.5825, cfg.Voltage(4660), 1e-9)
}

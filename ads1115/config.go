package ads1115

// Config register field values. Each type holds the bits already shifted to
// their position in the 16-bit register.

// Mux selects the input pair: first the positive input, then the negative
// one (GND for single-ended channels).
type Mux uint16

const (
	Mux01 Mux = iota << 12
	Mux03
	Mux13
	Mux23
	Mux0GND
	Mux1GND
	Mux2GND
	Mux3GND
)

// Gain selects the programmable amplifier full-scale range.
type Gain uint16

const (
	Gain6V    Gain = iota << 9 // ±6.144V
	Gain4V                     // ±4.096V
	Gain2V                     // ±2.048V
	Gain1V                     // ±1.024V
	Gain0V5                    // ±0.512V
	Gain0V25                   // ±0.256V
)

// FullScale returns the positive full-scale input voltage for the gain.
func (g Gain) FullScale() float64 {
	switch g {
	case Gain6V:
		return 6.144
	case Gain4V:
		return 4.096
	case Gain2V:
		return 2.048
	case Gain1V:
		return 1.024
	case Gain0V5:
		return 0.512
	default:
		return 0.256
	}
}

// Mode selects continuous conversion or single-shot with power-down.
type Mode uint16

const (
	ModeContinuous Mode = 0x0000
	ModeSingleShot Mode = 0x0100
)

// DataRate selects samples per second; higher rates trade resolution.
type DataRate uint16

const (
	DataRate8 DataRate = iota << 5
	DataRate16
	DataRate32
	DataRate64
	DataRate128
	DataRate250
	DataRate475
	DataRate860
)

// ComparatorMode selects traditional or window comparison.
type ComparatorMode uint16

const (
	ComparatorTraditional ComparatorMode = 0x0000
	ComparatorWindow      ComparatorMode = 0x0010
)

// ComparatorPolarity selects the ALERT/RDY pin's active level.
type ComparatorPolarity uint16

const (
	AlertActiveLow  ComparatorPolarity = 0x0000
	AlertActiveHigh ComparatorPolarity = 0x0008
)

// ComparatorLatch selects whether ALERT/RDY stays asserted until read.
type ComparatorLatch uint16

const (
	AlertNonLatching ComparatorLatch = 0x0000
	AlertLatching    ComparatorLatch = 0x0004
)

// ComparatorQueue selects how many out-of-range conversions assert the
// ALERT/RDY pin; QueueDisable puts the pin in high impedance.
type ComparatorQueue uint16

const (
	QueueAfterOne  ComparatorQueue = 0x0000
	QueueAfterTwo  ComparatorQueue = 0x0001
	QueueAfterFour ComparatorQueue = 0x0002
	QueueDisable   ComparatorQueue = 0x0003
)

const osSingleShot = 0x8000

// Config is the config register assembled from named fields instead of a raw
// word, so a setup write is always fully specified.
type Config struct {
	// TriggerSingleShot starts a conversion when written in single-shot mode.
	TriggerSingleShot bool
	Mux               Mux
	Gain              Gain
	Mode              Mode
	DataRate          DataRate
	ComparatorMode    ComparatorMode
	Polarity          ComparatorPolarity
	Latch             ComparatorLatch
	Queue             ComparatorQueue
}

// DefaultConfig mirrors the device's power-on register value: AIN0/AIN1,
// ±2.048V, single-shot, 128 SPS, comparator disabled.
func DefaultConfig() Config {
	return Config{
		Mux:      Mux01,
		Gain:     Gain2V,
		Mode:     ModeSingleShot,
		DataRate: DataRate128,
		Queue:    QueueDisable,
	}
}

// Uint16 packs the fields into the register value.
func (c Config) Uint16() uint16 {
	var v uint16
	if c.TriggerSingleShot {
		v |= osSingleShot
	}
	v |= uint16(c.Mux) | uint16(c.Gain) | uint16(c.Mode) | uint16(c.DataRate)
	v |= uint16(c.ComparatorMode) | uint16(c.Polarity) | uint16(c.Latch) | uint16(c.Queue)
	return v
}

// ParseConfig decodes a register value into named fields. The OS bit reads
// back as "no conversion in progress" and is not reflected here.
func ParseConfig(v uint16) Config {
	return Config{
		Mux:            Mux(v & 0x7000),
		Gain:           Gain(v & 0x0E00),
		Mode:           Mode(v & 0x0100),
		DataRate:       DataRate(v & 0x00E0),
		ComparatorMode: ComparatorMode(v & 0x0010),
		Polarity:       ComparatorPolarity(v & 0x0008),
		Latch:          ComparatorLatch(v & 0x0004),
		Queue:          ComparatorQueue(v & 0x0003),
	}
}

// Voltage converts a raw sample to volts for the configured gain.
func (c Config) Voltage(sample int16) float64 {
	return float64(sample) * c.Gain.FullScale() / 32768.0
}

package ads1115

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mklimuk/i2cm"
)

// 7-bit device addresses selected by wiring the ADDR pin.
const (
	AddrGND byte = 0x48
	AddrVDD byte = 0x49
	AddrSDA byte = 0x4A
	AddrSCL byte = 0x4B
)

// Register pointers.
const (
	RegConversion byte = 0x00
	RegConfig     byte = 0x01
	RegLoThresh   byte = 0x02
	RegHiThresh   byte = 0x03
)

// Device represents a TI ADS1115 16-bit ADC on an I2C bus.
// Typical usage:
//
//	dev, err := ads1115.New(master, ads1115.AddrGND)
//	sample, err := dev.ReadConversion(ctx)
type Device struct {
	master i2cm.Master
	addr   byte
}

// New creates a connector for the device at the given 7-bit address. The
// address must be one of the four ADDR pin variants.
func New(master i2cm.Master, addr byte) (*Device, error) {
	if addr < AddrGND || addr > AddrSCL {
		return nil, fmt.Errorf("%w: %#x is not an ADS1115 address (0x48..0x4B)", i2cm.ErrInvalidArgument, addr)
	}
	return &Device{master: master, addr: addr}, nil
}

// Addr returns the configured 7-bit device address.
func (d *Device) Addr() byte {
	return d.addr
}

// WriteRegister writes payload to the given register as a single atomic
// transaction: START, address+W, register pointer, payload, STOP, with ack
// checks on every written byte.
func (d *Device) WriteRegister(ctx context.Context, reg byte, payload []byte) error {
	if err := checkRegister(reg); err != nil {
		return err
	}
	txn := i2cm.NewTransaction().
		Start().
		Address(d.addr, i2cm.Write, true).
		WriteByte(reg, true).
		Write(payload, true).
		Stop()
	return d.master.Submit(ctx, txn)
}

// ReadRegister reads len(buf) bytes from the given register. The device has
// no "read register N" primitive, so this is two transactions: a pointer
// write selecting the register, then a re-addressed read with the final byte
// NACKed. The read phase only runs if the pointer write succeeded; its error
// is forwarded unchanged otherwise.
func (d *Device) ReadRegister(ctx context.Context, reg byte, buf []byte) error {
	if err := checkRegister(reg); err != nil {
		return err
	}
	pointer := i2cm.NewTransaction().
		Start().
		Address(d.addr, i2cm.Write, true).
		WriteByte(reg, true).
		Stop()
	if err := d.master.Submit(ctx, pointer); err != nil {
		return err
	}
	data := i2cm.NewTransaction().
		Start().
		Address(d.addr, i2cm.Read, true).
		Read(buf, i2cm.LastNack).
		Stop()
	return d.master.Submit(ctx, data)
}

// ReadConversion reads the conversion register and returns the sample as a
// big-endian signed 16-bit value.
func (d *Device) ReadConversion(ctx context.Context) (int16, error) {
	buf := make([]byte, 2)
	if err := d.ReadRegister(ctx, RegConversion, buf); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(buf)), nil
}

// WriteConfig writes the config register assembled from named fields.
func (d *Device) WriteConfig(ctx context.Context, cfg Config) error {
	var out [2]byte
	binary.BigEndian.PutUint16(out[:], cfg.Uint16())
	return d.WriteRegister(ctx, RegConfig, out[:])
}

// ReadConfig reads back the config register and decodes it.
func (d *Device) ReadConfig(ctx context.Context) (Config, error) {
	buf := make([]byte, 2)
	if err := d.ReadRegister(ctx, RegConfig, buf); err != nil {
		return Config{}, err
	}
	return ParseConfig(binary.BigEndian.Uint16(buf)), nil
}

// SetThresholds writes the comparator threshold registers. lo must be below
// hi or the device would never deassert the alert pin.
func (d *Device) SetThresholds(ctx context.Context, lo, hi int16) error {
	if lo >= hi {
		return fmt.Errorf("%w: lo threshold %d not below hi %d", i2cm.ErrInvalidArgument, lo, hi)
	}
	var out [2]byte
	binary.BigEndian.PutUint16(out[:], uint16(lo))
	if err := d.WriteRegister(ctx, RegLoThresh, out[:]); err != nil {
		return fmt.Errorf("could not write lo threshold: %w", err)
	}
	binary.BigEndian.PutUint16(out[:], uint16(hi))
	if err := d.WriteRegister(ctx, RegHiThresh, out[:]); err != nil {
		return fmt.Errorf("could not write hi threshold: %w", err)
	}
	return nil
}

// EnableConversionReady programs the threshold registers so the ALERT/RDY
// pin pulses on each completed conversion (LoThresh MSB clear, HiThresh MSB
// set, per datasheet).
func (d *Device) EnableConversionReady(ctx context.Context) error {
	if err := d.WriteRegister(ctx, RegLoThresh, []byte{0x00, 0x00}); err != nil {
		return fmt.Errorf("could not arm lo threshold: %w", err)
	}
	if err := d.WriteRegister(ctx, RegHiThresh, []byte{0x80, 0x00}); err != nil {
		return fmt.Errorf("could not arm hi threshold: %w", err)
	}
	return nil
}

func checkRegister(reg byte) error {
	if reg > RegHiThresh {
		return fmt.Errorf("%w: register pointer %#x out of range", i2cm.ErrInvalidArgument, reg)
	}
	return nil
}

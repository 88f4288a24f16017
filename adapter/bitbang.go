package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/mklimuk/i2cm"
)

// BitbangConfig selects the GPIO lines and electrical behavior of a
// software I2C master.
type BitbangConfig struct {
	// Chip is the GPIO character device, e.g. "gpiochip0".
	Chip string
	// SDA and SCL are line offsets on the chip.
	SDA int
	SCL int
	// PullUp enables the controller's internal pull-ups so no external
	// resistors are needed.
	PullUp bool
	// SpeedHz is the bus clock; both edges of a bit take one period.
	SpeedHz uint
}

var _ i2cm.Master = &Bitbang{}

// Bitbang drives SDA/SCL directly through the GPIO character device and is
// the only adapter that executes transaction primitives one by one: START
// and STOP conditions are real edges and every byte's ACK bit is sampled
// from the wire.
type Bitbang struct {
	mx         sync.Mutex
	sda        *gpiocdev.Line
	scl        *gpiocdev.Line
	halfPeriod time.Duration
}

// NewBitbang claims both lines as open-drain outputs and leaves the bus
// idle (both lines released high). Close releases the lines.
func NewBitbang(cfg BitbangConfig) (*Bitbang, error) {
	if cfg.SDA == cfg.SCL {
		return nil, fmt.Errorf("%w: SDA and SCL cannot share line %d", i2cm.ErrInvalidArgument, cfg.SDA)
	}
	if cfg.SpeedHz == 0 {
		return nil, fmt.Errorf("%w: bus speed not set", i2cm.ErrInvalidArgument)
	}
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(1), gpiocdev.AsOpenDrain}
	if cfg.PullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	sda, err := gpiocdev.RequestLine(cfg.Chip, cfg.SDA, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: could not request SDA line %d: %v", i2cm.ErrDriverState, cfg.SDA, err)
	}
	scl, err := gpiocdev.RequestLine(cfg.Chip, cfg.SCL, opts...)
	if err != nil {
		_ = sda.Close()
		return nil, fmt.Errorf("%w: could not request SCL line %d: %v", i2cm.ErrDriverState, cfg.SCL, err)
	}
	return &Bitbang{
		sda:        sda,
		scl:        scl,
		halfPeriod: time.Second / time.Duration(2*cfg.SpeedHz),
	}, nil
}

func (b *Bitbang) Submit(ctx context.Context, txn *i2cm.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	for _, p := range txn.Primitives() {
		if err := ctx.Err(); err != nil {
			b.stop()
			return err
		}
		var err error
		switch p.Kind {
		case i2cm.KindStart:
			err = b.start()
		case i2cm.KindAddress:
			err = b.writeByte(p.Addr<<1|byte(p.Dir), p.AckCheck)
		case i2cm.KindWrite:
			for _, v := range p.Data {
				if err = b.writeByte(v, p.AckCheck); err != nil {
					break
				}
			}
		case i2cm.KindRead:
			for i := range p.Buf {
				p.Buf[i], err = b.readByte(ackFor(p.Policy, i, len(p.Buf)))
				if err != nil {
					break
				}
			}
		case i2cm.KindStop:
			err = b.stop()
		}
		if err != nil {
			// free the bus before surfacing the failure
			if p.Kind != i2cm.KindStop {
				_ = b.stop()
			}
			return err
		}
	}
	return nil
}

// Close releases both GPIO lines.
func (b *Bitbang) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	errSDA := b.sda.Close()
	errSCL := b.scl.Close()
	if errSDA != nil {
		return errSDA
	}
	return errSCL
}

func ackFor(policy i2cm.AckPolicy, i, n int) bool {
	switch policy {
	case i2cm.AckEach:
		return true
	case i2cm.NackEach:
		return false
	default:
		return i < n-1
	}
}

// start pulls SDA low while SCL is high.
func (b *Bitbang) start() error {
	if err := b.set(b.sda, 1); err != nil {
		return err
	}
	if err := b.set(b.scl, 1); err != nil {
		return err
	}
	b.tick()
	if err := b.set(b.sda, 0); err != nil {
		return err
	}
	b.tick()
	return b.set(b.scl, 0)
}

// stop releases SDA while SCL is high.
func (b *Bitbang) stop() error {
	if err := b.set(b.sda, 0); err != nil {
		return err
	}
	b.tick()
	if err := b.set(b.scl, 1); err != nil {
		return err
	}
	b.tick()
	return b.set(b.sda, 1)
}

func (b *Bitbang) writeByte(v byte, ackCheck bool) error {
	for bit := 7; bit >= 0; bit-- {
		if err := b.writeBit((v >> uint(bit)) & 1); err != nil {
			return err
		}
	}
	ack, err := b.readBit()
	if err != nil {
		return err
	}
	// the device acknowledges by holding SDA low
	if ackCheck && ack != 0 {
		return fmt.Errorf("%w: no ack for byte %#x", i2cm.ErrTransferFailed, v)
	}
	return nil
}

func (b *Bitbang) readByte(ack bool) (byte, error) {
	var v byte
	for bit := 7; bit >= 0; bit-- {
		read, err := b.readBit()
		if err != nil {
			return 0, err
		}
		v |= byte(read) << uint(bit)
	}
	ackBit := byte(1)
	if ack {
		ackBit = 0
	}
	return v, b.writeBit(ackBit)
}

func (b *Bitbang) writeBit(v byte) error {
	if err := b.set(b.sda, int(v)); err != nil {
		return err
	}
	return b.clockPulse()
}

func (b *Bitbang) readBit() (int, error) {
	// release SDA so the device can drive it
	if err := b.set(b.sda, 1); err != nil {
		return 0, err
	}
	b.tick()
	if err := b.set(b.scl, 1); err != nil {
		return 0, err
	}
	b.tick()
	v, err := b.sda.Value()
	if err != nil {
		return 0, fmt.Errorf("could not sample SDA: %w", err)
	}
	return v, b.set(b.scl, 0)
}

func (b *Bitbang) clockPulse() error {
	b.tick()
	if err := b.set(b.scl, 1); err != nil {
		return err
	}
	b.tick()
	return b.set(b.scl, 0)
}

func (b *Bitbang) set(line *gpiocdev.Line, v int) error {
	err := line.SetValue(v)
	if err != nil {
		return fmt.Errorf("%w: could not drive line: %v", i2cm.ErrDriverState, err)
	}
	return nil
}

func (b *Bitbang) tick() {
	time.Sleep(b.halfPeriod)
}

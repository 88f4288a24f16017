package i2c

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mklimuk/i2cm"
)

var _ i2cm.Master = &GenericBus{}

// GenericBus executes transactions against a kernel i2c-dev bus through
// periph.io. The kernel driver performs the whole addressed transfer
// atomically, so primitives are lowered to a segment before submission.
type GenericBus struct {
	mx  sync.Mutex
	bus i2c.BusCloser
}

func NewGenericBus(dev string) (*GenericBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: could not init host: %v", i2cm.ErrDriverState, err)
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open i2c bus: %v", i2cm.ErrDriverState, err)
	}
	return &GenericBus{
		bus: bus,
	}, nil
}

// Submit performs the compiled transfer. The kernel driver blocks without a
// deadline; a cancelled context is only honored between transactions.
func (b *GenericBus) Submit(ctx context.Context, txn *i2cm.Transaction) error {
	seg, err := txn.Compile()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	if seg.Dir == i2cm.Read {
		err = b.bus.Tx(uint16(seg.Addr), nil, seg.Read)
	} else {
		err = b.bus.Tx(uint16(seg.Addr), seg.Write, nil)
	}
	if err != nil {
		return fmt.Errorf("%w: bus transfer to %x: %v", i2cm.ErrTransferFailed, seg.Addr, err)
	}
	return nil
}

// SetSpeed sets the bus clock in hertz.
func (b *GenericBus) SetSpeed(hz uint) error {
	err := b.bus.SetSpeed(physic.Frequency(hz) * physic.Hertz)
	if err != nil {
		return fmt.Errorf("could not set bus speed: %w", err)
	}
	return nil
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}

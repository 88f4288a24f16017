package adapter

import (
	"context"
	"fmt"
	"sync"

	gi2c "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/i2cm"
)

var _ i2cm.Master = &GobotMaster{}

// GobotMaster executes transactions through a gobot platform adaptor
// (nanopi, raspi, ...). gobot models the bus as per-address connections, so
// a generic driver is opened lazily for every device address seen.
type GobotMaster struct {
	mx        sync.Mutex
	connector gi2c.Connector
	bus       int
	drivers   map[byte]*gi2c.GenericDriver
}

func NewGobotMaster(connector gi2c.Connector, bus int) *GobotMaster {
	return &GobotMaster{
		connector: connector,
		bus:       bus,
		drivers:   make(map[byte]*gi2c.GenericDriver),
	}
}

func (m *GobotMaster) Submit(ctx context.Context, txn *i2cm.Transaction) error {
	seg, err := txn.Compile()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	driver, err := m.driver(seg.Addr)
	if err != nil {
		return err
	}
	if seg.Dir == i2cm.Read {
		err = driver.Read(seg.Read)
	} else {
		err = driver.Write(seg.Write)
	}
	if err != nil {
		return fmt.Errorf("%w: transfer to %x: %v", i2cm.ErrTransferFailed, seg.Addr, err)
	}
	return nil
}

func (m *GobotMaster) driver(addr byte) (*gi2c.GenericDriver, error) {
	if driver, ok := m.drivers[addr]; ok {
		return driver, nil
	}
	driver := gi2c.NewGenericDriver(m.connector, "i2cm", int(addr), func(c gi2c.Config) {
		c.SetBus(m.bus)
	})
	if err := driver.Start(); err != nil {
		return nil, fmt.Errorf("%w: driver start for %x: %v", i2cm.ErrDriverState, addr, err)
	}
	m.drivers[addr] = driver
	return driver, nil
}

// Close halts every opened connection.
func (m *GobotMaster) Close() error {
	m.mx.Lock()
	defer m.mx.Unlock()
	var firstErr error
	for addr, driver := range m.drivers {
		if err := driver.Halt(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("halt for %x: %w", addr, err)
		}
		delete(m.drivers, addr)
	}
	return firstErr
}

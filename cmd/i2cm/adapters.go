package main

import (
	"fmt"

	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/i2cm"
	"github.com/mklimuk/i2cm/adapter"
	"github.com/mklimuk/i2cm/i2c"
	"github.com/mklimuk/i2cm/poll"
)

// openMaster builds the bus master selected by the settings. The returned
// closer tears the adapter down; it is a no-op for the MCP2221 whose HID
// handle is opened per command.
func openMaster(settings poll.Settings) (i2cm.Master, func() error, error) {
	switch settings.Adapter {
	case "mcp2221":
		a := adapter.NewMCP2221()
		if err := a.Init(); err != nil {
			return nil, nil, err
		}
		return a, func() error { return nil }, nil
	case "generic":
		bus, err := i2c.NewGenericBus(settings.Device)
		if err != nil {
			return nil, nil, err
		}
		if settings.SpeedHz > 0 {
			if err := bus.SetSpeed(settings.SpeedHz); err != nil {
				_ = bus.Close()
				return nil, nil, err
			}
		}
		return bus, bus.Close, nil
	case "nanopi":
		npi := nanopi.NewNeoAdaptor()
		if err := npi.I2cBusAdaptor.Connect(); err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		master := adapter.NewGobotMaster(npi, 0)
		return master, func() error {
			errClose := master.Close()
			errFinalize := npi.I2cBusAdaptor.Finalize()
			if errClose != nil {
				return errClose
			}
			return errFinalize
		}, nil
	case "bitbang":
		master, err := adapter.NewBitbang(adapter.BitbangConfig{
			Chip:    settings.Chip,
			SDA:     settings.SDA,
			SCL:     settings.SCL,
			PullUp:  settings.PullUp,
			SpeedHz: settings.SpeedHz,
		})
		if err != nil {
			return nil, nil, err
		}
		return master, master.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown adapter %q", settings.Adapter)
}

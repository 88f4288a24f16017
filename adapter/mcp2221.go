package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/i2cm"
	"github.com/mklimuk/i2cm/cmd/i2cm/console"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

// HID command codes
const (
	cmdStatus    = 0x10
	cmdReadData  = 0x40
	cmdWriteData = 0x90
	cmdReadReq   = 0x91
)

// MCP2221 drives an I2C bus through the Microchip MCP2221 USB-HID bridge.
// Submissions are serialized with a mutex since the bridge's I2C engine
// processes one transfer at a time.
type MCP2221 struct {
	mx            sync.Mutex
	request       []byte
	response      []byte
	responseWait  time.Duration
	submitTimeout time.Duration
}

type MCP2221Status struct {
	I2CDataBufferCounter   int
	I2CSpeedDivider        int
	I2CTimeout             int
	CurrentAddress         string
	LastWriteRequestedSize uint16
	LastWriteSentSize      uint16
	ReadPending            int
}

type MCP2221Opt func(*MCP2221)

// WithSubmitTimeout bounds how long Submit keeps retrying a busy engine.
func WithSubmitTimeout(timeout time.Duration) MCP2221Opt {
	return func(d *MCP2221) {
		d.submitTimeout = timeout
	}
}

func NewMCP2221(opts ...MCP2221Opt) *MCP2221 {
	d := &MCP2221{
		request:       make([]byte, 64),
		response:      make([]byte, 64),
		responseWait:  50 * time.Millisecond,
		submitTimeout: i2cm.DefaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init probes for the bridge on the USB bus. It must succeed before the
// first Submit; a missing or unopenable device maps to ErrDriverState.
func (d *MCP2221) Init() error {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return fmt.Errorf("%w: MCP2221 device not found", i2cm.ErrDriverState)
	}
	dev, err := devs[0].Open()
	if err != nil {
		return fmt.Errorf("%w: could not open MCP2221: %v", i2cm.ErrDriverState, err)
	}
	return dev.Close()
}

var _ i2cm.Master = &MCP2221{}

// Submit lowers the transaction to its message form and drives the bridge's
// write (0x90) or read-request/read-data (0x91/0x40) command pair. A busy
// engine is retried until the submit timeout elapses.
func (d *MCP2221) Submit(ctx context.Context, txn *i2cm.Transaction) error {
	seg, err := txn.Compile()
	if err != nil {
		return err
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	deadline := time.Now().Add(d.submitTimeout)
	for {
		if seg.Dir == i2cm.Read {
			err = d.readSegment(ctx, seg)
		} else {
			err = d.writeSegment(ctx, seg)
		}
		if !errors.Is(err, i2cm.ErrBusBusy) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: engine busy for %s", i2cm.ErrTimeout, d.submitTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.responseWait):
		}
	}
}

func (d *MCP2221) writeSegment(ctx context.Context, seg i2cm.Segment) error {
	d.resetBuffers()
	d.request[0] = cmdWriteData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(seg.Write)))
	d.request[3] = seg.Addr << 1
	copy(d.request[4:], seg.Write)
	err := d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", seg.Addr, err)
	}
	// engine could not take the transfer
	if d.response[1] == 0x01 {
		console.Debug("adapter busy")
		return i2cm.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) readSegment(ctx context.Context, seg i2cm.Segment) error {
	d.resetBuffers()
	d.request[0] = cmdReadReq
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(seg.Read)))
	d.request[3] = seg.Addr<<1 + 1
	err := d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", seg.Addr, err)
	}
	if d.response[1] == 0x01 {
		console.Debug("adapter busy")
		return i2cm.ErrBusBusy
	}
	d.request[0] = cmdReadData
	resetBuffer(d.response)
	err = d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == 0x41 {
		return fmt.Errorf("%w: error reading the I2C slave data from the I2C engine", i2cm.ErrTransferFailed)
	}
	if d.response[3] == 127 || int(d.response[3]) != len(seg.Read) {
		return fmt.Errorf("%w: invalid data size byte; expected %d, got %d", i2cm.ErrTransferFailed, len(seg.Read), d.response[3])
	}
	copy(seg.Read, d.response[4:])
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// ReleaseBus cancels the current transfer and frees the bus lines.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = 0x10
	err := d.send(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

func (d *MCP2221) send(ctx context.Context, response bool) error {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return fmt.Errorf("%w: MCP2221 device not found", i2cm.ErrDriverState)
	}
	dev, err := devs[0].Open()
	if err != nil {
		return fmt.Errorf("%w: error opening device: %v", i2cm.ErrDriverState, err)
	}
	defer func() {
		_ = dev.Close()
	}()
	verbose := console.IsVerbose(ctx)
	if verbose {
		console.Printf("sending message to adapter:\n%s\n", hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short write: %d", n)
	}
	if !response {
		return nil
	}
	time.Sleep(d.responseWait)
	console.Debug("reading response from adapter")
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		console.Printf("read message from adapter:\n%s\n", hex.Dump(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := 0; i < len(buf)-1; i++ {
		buf[i] = 0x00
	}
}

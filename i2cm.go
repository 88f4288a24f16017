package i2cm

import (
	"context"
	"fmt"
	"time"
)

// DefaultSubmitTimeout bounds a single transaction submission unless the
// adapter is configured otherwise or the context carries an earlier deadline.
const DefaultSubmitTimeout = time.Second

var ErrInvalidArgument = fmt.Errorf("malformed transaction")
var ErrTransferFailed = fmt.Errorf("transfer failed (no ack from device)")
var ErrDriverState = fmt.Errorf("driver not installed or not in master mode")
var ErrTimeout = fmt.Errorf("bus busy beyond submit timeout")
var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// Direction is the read/write bit following the 7-bit device address on the wire.
type Direction byte

const (
	Write Direction = 0
	Read  Direction = 1
)

func (d Direction) String() string {
	if d == Read {
		return "R"
	}
	return "W"
}

// AckPolicy controls how the master acknowledges bytes it reads.
type AckPolicy byte

const (
	// AckEach acknowledges every byte read.
	AckEach AckPolicy = iota
	// NackEach acknowledges no byte read.
	NackEach
	// LastNack acknowledges all bytes except the final one, signalling the
	// device to stop sending. This is what register reads want.
	LastNack
)

// Master submits transactions to an I2C bus in master mode. Submit blocks the
// caller until the transaction completes, the adapter's submit timeout elapses
// or the context is cancelled; it never retries a failed transaction.
//
// Adapters must serialize Submit internally: the peripheral cannot process two
// transactions at once.
type Master interface {
	Submit(ctx context.Context, txn *Transaction) error
}

// Initializer is implemented by adapters that need a one-time probe/setup
// before the first Submit (e.g. the MCP2221 USB bridge).
type Initializer interface {
	Init() error
}

package i2cm

import "fmt"

// Kind identifies a bus primitive.
type Kind int

const (
	KindStart Kind = iota
	KindAddress
	KindWrite
	KindRead
	KindStop
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "START"
	case KindAddress:
		return "ADDRESS"
	case KindWrite:
		return "WRITE"
	case KindRead:
		return "READ"
	case KindStop:
		return "STOP"
	}
	return "UNKNOWN"
}

// Primitive is one step of a transaction. Adapters that drive the wires
// directly (bit-bang) execute primitives in order; message-oriented adapters
// lower them to a Segment first.
type Primitive struct {
	Kind     Kind
	Addr     byte
	Dir      Direction
	Data     []byte
	Buf      []byte
	AckCheck bool
	Policy   AckPolicy
}

// Transaction is an ordered sequence of bus primitives built once per
// exchange and submitted atomically to a Master. It is not safe for
// concurrent use and must not be reused after submission.
type Transaction struct {
	prims []Primitive
}

func NewTransaction() *Transaction {
	return &Transaction{}
}

// Start appends a start (or repeated start) condition.
func (t *Transaction) Start() *Transaction {
	t.prims = append(t.prims, Primitive{Kind: KindStart})
	return t
}

// Address appends the 7-bit device address with the direction bit. With
// ackCheck set the master aborts the transaction if the device does not
// acknowledge.
func (t *Transaction) Address(addr byte, dir Direction, ackCheck bool) *Transaction {
	t.prims = append(t.prims, Primitive{Kind: KindAddress, Addr: addr, Dir: dir, AckCheck: ackCheck})
	return t
}

// WriteByte appends a single data byte.
func (t *Transaction) WriteByte(b byte, ackCheck bool) *Transaction {
	t.prims = append(t.prims, Primitive{Kind: KindWrite, Data: []byte{b}, AckCheck: ackCheck})
	return t
}

// Write appends a run of data bytes.
func (t *Transaction) Write(data []byte, ackCheck bool) *Transaction {
	t.prims = append(t.prims, Primitive{Kind: KindWrite, Data: data, AckCheck: ackCheck})
	return t
}

// Read appends a read of len(buf) bytes into the caller-supplied buffer.
func (t *Transaction) Read(buf []byte, policy AckPolicy) *Transaction {
	t.prims = append(t.prims, Primitive{Kind: KindRead, Buf: buf, Policy: policy})
	return t
}

// Stop appends a stop condition.
func (t *Transaction) Stop() *Transaction {
	t.prims = append(t.prims, Primitive{Kind: KindStop})
	return t
}

// Primitives exposes the ordered steps for adapters and inspection. The
// returned slice must not be modified.
func (t *Transaction) Primitives() []Primitive {
	return t.prims
}

// Len returns the number of primitives in the transaction.
func (t *Transaction) Len() int {
	return len(t.prims)
}

// Validate checks well-formedness: exactly one leading START, the device
// address directly after it, at least one data primitive, exactly one
// trailing STOP, reads only in read-direction transactions and writes only in
// write-direction ones. All violations map to ErrInvalidArgument.
func (t *Transaction) Validate() error {
	if len(t.prims) < 4 {
		return fmt.Errorf("%w: %d primitives, need at least START, ADDRESS, data, STOP", ErrInvalidArgument, len(t.prims))
	}
	if t.prims[0].Kind != KindStart {
		return fmt.Errorf("%w: transaction must open with START, got %s", ErrInvalidArgument, t.prims[0].Kind)
	}
	if t.prims[1].Kind != KindAddress {
		return fmt.Errorf("%w: expected ADDRESS after START, got %s", ErrInvalidArgument, t.prims[1].Kind)
	}
	if t.prims[1].Addr > 0x7F {
		return fmt.Errorf("%w: address %#x exceeds 7 bits", ErrInvalidArgument, t.prims[1].Addr)
	}
	last := t.prims[len(t.prims)-1]
	if last.Kind != KindStop {
		return fmt.Errorf("%w: transaction must close with STOP, got %s", ErrInvalidArgument, last.Kind)
	}
	dir := t.prims[1].Dir
	reads := 0
	for _, p := range t.prims[2 : len(t.prims)-1] {
		switch p.Kind {
		case KindStart, KindAddress, KindStop:
			return fmt.Errorf("%w: unexpected %s inside transaction body", ErrInvalidArgument, p.Kind)
		case KindWrite:
			if dir != Write {
				return fmt.Errorf("%w: WRITE primitive in a read-direction transaction", ErrInvalidArgument)
			}
			if len(p.Data) == 0 {
				return fmt.Errorf("%w: empty WRITE primitive", ErrInvalidArgument)
			}
		case KindRead:
			if dir != Read {
				return fmt.Errorf("%w: READ primitive in a write-direction transaction", ErrInvalidArgument)
			}
			if len(p.Buf) == 0 {
				return fmt.Errorf("%w: READ primitive with empty buffer", ErrInvalidArgument)
			}
			reads++
		}
	}
	if reads > 1 {
		return fmt.Errorf("%w: %d READ primitives, at most one run per transaction", ErrInvalidArgument, reads)
	}
	return nil
}

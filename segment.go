package i2cm

// Segment is a transaction lowered to the message form that i2c-dev style
// transports understand: one addressed write run and/or one addressed read
// run. Message-oriented adapters (MCP2221, periph, gobot) execute segments;
// the bit-bang adapter executes the primitives directly.
type Segment struct {
	Addr   byte
	Dir    Direction
	Write  []byte
	Read   []byte
	Policy AckPolicy
}

// Compile validates the transaction and lowers it to a single segment.
// Consecutive write runs are concatenated; a read-direction transaction
// carries the buffer of its read primitives.
func (t *Transaction) Compile() (Segment, error) {
	if err := t.Validate(); err != nil {
		return Segment{}, err
	}
	seg := Segment{
		Addr:   t.prims[1].Addr,
		Dir:    t.prims[1].Dir,
		Policy: LastNack,
	}
	for _, p := range t.prims[2 : len(t.prims)-1] {
		switch p.Kind {
		case KindWrite:
			seg.Write = append(seg.Write, p.Data...)
		case KindRead:
			seg.Read = p.Buf
			seg.Policy = p.Policy
		}
	}
	return seg, nil
}

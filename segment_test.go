package i2cm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompile_WriteRuns(t *testing.T) {
	txn := NewTransaction().
		Start().
		Address(0x48, Write, true).
		WriteByte(0x01, true).
		Write([]byte{0x84, 0x83}, true).
		Stop()
	seg, err := txn.Compile()
	assert.NoError(t, err)
	assert.Equal(t, byte(0x48), seg.Addr)
	assert.Equal(t, Write, seg.Dir)
	assert.Equal(t, []byte{0x01, 0x84, 0x83}, seg.Write)
	assert.Nil(t, seg.Read)
}

func TestCompile_Read(t *testing.T) {
	buf := make([]byte, 2)
	txn := NewTransaction().
		Start().
		Address(0x4B, Read, true).
		Read(buf, LastNack).
		Stop()
	seg, err := txn.Compile()
	assert.NoError(t, err)
	assert.Equal(t, byte(0x4B), seg.Addr)
	assert.Equal(t, Read, seg.Dir)
	assert.Empty(t, seg.Write)
	assert.Equal(t, LastNack, seg.Policy)
	// the compiled segment must alias the caller's buffer
	seg.Read[0] = 0x12
	seg.Read[1] = 0x34
	assert.Equal(t, []byte{0x12, 0x34}, buf)
}

func TestCompile_RejectsMalformed(t *testing.T) {
	txn := NewTransaction().Address(0x48, Write, true).WriteByte(0x00, true).Stop()
	_, err := txn.Compile()
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

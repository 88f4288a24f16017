package adapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mklimuk/i2cm"
)

func TestNewBitbang_RejectsInvalidConfig(t *testing.T) {
	_, err := NewBitbang(BitbangConfig{Chip: "gpiochip0", SDA: 2, SCL: 2, SpeedHz: 100_000})
	assert.True(t, errors.Is(err, i2cm.ErrInvalidArgument))

	_, err = NewBitbang(BitbangConfig{Chip: "gpiochip0", SDA: 0, SCL: 2})
	assert.True(t, errors.Is(err, i2cm.ErrInvalidArgument))
}

func TestAckFor(t *testing.T) {
	tests := []struct {
		name     string
		policy   i2cm.AckPolicy
		expected []bool
	}{
		{"ack each", i2cm.AckEach, []bool{true, true, true}},
		{"nack each", i2cm.NackEach, []bool{false, false, false}},
		{"last nack", i2cm.LastNack, []bool{true, true, false}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := make([]bool, 3)
			for i := range got {
				got[i] = ackFor(test.policy, i, 3)
			}
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestAckFor_SingleByteLastNack(t *testing.T) {
	// a one byte read is its own final byte
	assert.False(t, ackFor(i2cm.LastNack, 0, 1))
}

package ads1115

import (
	"context"
)

// ConversionBehaviorFunc defines the function signature for conversion behavior.
// It returns the raw signed 16-bit sample or an error.
type ConversionBehaviorFunc func(ctx context.Context) (int16, error)

// MockConverter is a mock implementation of a conversion source that uses a
// behavior function to produce samples without requiring any hardware. It can
// stand in for a Device wherever only ReadConversion is consumed (e.g. the
// polling task).
type MockConverter struct {
	behavior ConversionBehaviorFunc
}

// NewMockConverter creates a new mock conversion source with the given behavior function.
//
// Example usage:
//
//	src := NewMockConverter(func(ctx context.Context) (int16, error) { return 4660, nil })
func NewMockConverter(behavior ConversionBehaviorFunc) *MockConverter {
	return &MockConverter{behavior: behavior}
}

// ReadConversion returns the sample by calling the behavior function.
func (m *MockConverter) ReadConversion(ctx context.Context) (int16, error) {
	return m.behavior(ctx)
}

package ads1115

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mklimuk/i2cm"
)

// MockMaster is a mock implementation of i2cm.Master using testify/mock. It
// records submitted transactions so tests can assert on primitive sequences.
type MockMaster struct {
	mock.Mock
	submitted []*i2cm.Transaction
}

func (m *MockMaster) Submit(ctx context.Context, txn *i2cm.Transaction) error {
	m.submitted = append(m.submitted, txn)
	args := m.Called(ctx, txn)
	if data, ok := args.Get(0).([]byte); ok {
		// fill the transaction's read buffer if the expectation carries data
		if seg, err := txn.Compile(); err == nil && seg.Read != nil && len(data) <= len(seg.Read) {
			copy(seg.Read, data)
		}
	}
	return args.Error(1)
}

func kinds(txn *i2cm.Transaction) []i2cm.Kind {
	prims := txn.Primitives()
	out := make([]i2cm.Kind, 0, len(prims))
	for _, p := range prims {
		out = append(out, p.Kind)
	}
	return out
}

func TestWriteRegister_EmitsSingleTransaction(t *testing.T) {
	master := new(MockMaster)
	master.On("Submit", mock.Anything, mock.Anything).Return(nil, nil).Once()

	dev, err := New(master, AddrGND)
	assert.NoError(t, err)
	assert.NoError(t, dev.WriteRegister(context.Background(), RegConfig, []byte{0x85, 0x83}))

	master.AssertNumberOfCalls(t, "Submit", 1)
	txn := master.submitted[0]
	assert.NoError(t, txn.Validate())
	assert.Equal(t, []i2cm.Kind{i2cm.KindStart, i2cm.KindAddress, i2cm.KindWrite, i2cm.KindWrite, i2cm.KindStop}, kinds(txn))

	prims := txn.Primitives()
	assert.Equal(t, byte(AddrGND), prims[1].Addr)
	assert.Equal(t, i2cm.Write, prims[1].Dir)
	assert.True(t, prims[1].AckCheck)
	assert.Equal(t, []byte{RegConfig}, prims[2].Data)
	assert.Equal(t, []byte{0x85, 0x83}, prims[3].Data)
}

func TestReadRegister_TwoPhases(t *testing.T) {
	master := new(MockMaster)
	master.On("Submit", mock.Anything, mock.Anything).Return(nil, nil).Once()
	master.On("Submit", mock.Anything, mock.Anything).Return([]byte{0x12, 0x34}, nil).Once()

	dev, err := New(master, AddrGND)
	assert.NoError(t, err)
	buf := make([]byte, 2)
	assert.NoError(t, dev.ReadRegister(context.Background(), RegConversion, buf))
	assert.Equal(t, []byte{0x12, 0x34}, buf)

	master.AssertNumberOfCalls(t, "Submit", 2)
	pointer, data := master.submitted[0], master.submitted[1]
	assert.Equal(t, []i2cm.Kind{i2cm.KindStart, i2cm.KindAddress, i2cm.KindWrite, i2cm.KindStop}, kinds(pointer))
	assert.Equal(t, []i2cm.Kind{i2cm.KindStart, i2cm.KindAddress, i2cm.KindRead, i2cm.KindStop}, kinds(data))

	assert.Equal(t, i2cm.Write, pointer.Primitives()[1].Dir)
	assert.Equal(t, []byte{RegConversion}, pointer.Primitives()[2].Data)
	assert.Equal(t, i2cm.Read, data.Primitives()[1].Dir)
	assert.Equal(t, i2cm.LastNack, data.Primitives()[2].Policy)
}

func TestReadRegister_Phase1FailureShortCircuits(t *testing.T) {
	master := new(MockMaster)
	master.On("Submit", mock.Anything, mock.Anything).Return(nil, i2cm.ErrTransferFailed).Once()

	dev, err := New(master, AddrVDD)
	assert.NoError(t, err)
	buf := make([]byte, 2)
	err = dev.ReadRegister(context.Background(), RegConversion, buf)
	assert.True(t, errors.Is(err, i2cm.ErrTransferFailed))
	// phase 2 must never be submitted
	master.AssertNumberOfCalls(t, "Submit", 1)
}

func TestReadConversion_Sample(t *testing.T) {
	master := new(MockMaster)
	master.On("Submit", mock.Anything, mock.Anything).Return(nil, nil).Once()
	master.On("Submit", mock.Anything, mock.Anything).Return([]byte{0x12, 0x34}, nil).Once()

	dev, err := New(master, AddrGND)
	assert.NoError(t, err)
	sample, err := dev.ReadConversion(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int16(4660), sample)
}

func TestReadConversion_NegativeSample(t *testing.T) {
	master := new(MockMaster)
	master.On("Submit", mock.Anything, mock.Anything).Return(nil, nil).Once()
	master.On("Submit", mock.Anything, mock.Anything).Return([]byte{0xFF, 0xFE}, nil).Once()

	dev, err := New(master, AddrGND)
	assert.NoError(t, err)
	sample, err := dev.ReadConversion(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int16(-2), sample)
}

func TestReadConversion_TimeoutReportsNoData(t *testing.T) {
	master := new(MockMaster)
	master.On("Submit", mock.Anything, mock.Anything).Return(nil, nil).Once()
	master.On("Submit", mock.Anything, mock.Anything).Return(nil, i2cm.ErrTimeout).Once()

	dev, err := New(master, AddrGND)
	assert.NoError(t, err)
	sample, err := dev.ReadConversion(context.Background())
	assert.True(t, errors.Is(err, i2cm.ErrTimeout))
	assert.Equal(t, int16(0), sample)
}

func TestNew_RejectsUnknownAddress(t *testing.T) {
	master := new(MockMaster)
	for _, addr := range []byte{0x00, 0x47, 0x4C, 0x7F} {
		_, err := New(master, addr)
		assert.True(t, errors.Is(err, i2cm.ErrInvalidArgument), "address %#x", addr)
	}
	for _, addr := range []byte{AddrGND, AddrVDD, AddrSDA, AddrSCL} {
		dev, err := New(master, addr)
		assert.NoError(t, err)
		assert.Equal(t, addr, dev.Addr())
	}
}

func TestWriteRegister_RejectsUnknownRegister(t *testing.T) {
	master := new(MockMaster)
	dev, err := New(master, AddrGND)
	assert.NoError(t, err)
	err = dev.WriteRegister(context.Background(), 0x04, []byte{0x00})
	assert.True(t, errors.Is(err, i2cm.ErrInvalidArgument))
	master.AssertNumberOfCalls(t, "Submit", 0)
}

func TestSetThresholds(t *testing.T) {
	master := new(MockMaster)
	master.On("Submit", mock.Anything, mock.Anything).Return(nil, nil).Twice()

	dev, err := New(master, AddrGND)
	assert.NoError(t, err)
	assert.NoError(t, dev.SetThresholds(context.Background(), -100, 100))
	master.AssertNumberOfCalls(t, "Submit", 2)

	lo, hi := master.submitted[0], master.submitted[1]
	assert.Equal(t, []byte{RegLoThresh}, lo.Primitives()[2].Data)
	assert.Equal(t, []byte{0xFF, 0x9C}, lo.Primitives()[3].Data)
	assert.Equal(t, []byte{RegHiThresh}, hi.Primitives()[2].Data)
	assert.Equal(t, []byte{0x00, 0x64}, hi.Primitives()[3].Data)
}

func TestSetThresholds_RejectsInvertedWindow(t *testing.T) {
	master := new(MockMaster)
	dev, err := New(master, AddrGND)
	assert.NoError(t, err)
	err = dev.SetThresholds(context.Background(), 100, 100)
	assert.True(t, errors.Is(err, i2cm.ErrInvalidArgument))
	master.AssertNumberOfCalls(t, "Submit", 0)
}

package slave_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/i2cslave.go/pkg/sim/bus"
	"github.com/robotalks/i2cslave.go/pkg/slave"
	"github.com/robotalks/i2cslave.go/pkg/usi"
)

type recorder struct {
	txs []slave.Transaction
}

func (r *recorder) TransactionDone(t slave.Transaction) {
	r.txs = append(r.txs, t)
}

func (r *recorder) outcomes() (o []slave.Outcome) {
	for _, t := range r.txs {
		o = append(o, t.Outcome)
	}
	return
}

func newDevice(t *testing.T, conf slave.Config) (*slave.Device, *bus.Bus, *recorder) {
	b := bus.New("test")
	dev, err := slave.New(b, conf)
	require.NoError(t, err)
	rec := &recorder{}
	dev.Engine.Observer = rec
	require.NoError(t, dev.Initialize())
	return dev, b, rec
}

// read runs a read transaction on the primitives and returns the bytes.
func read(b *bus.Bus, addr byte, n int) ([]byte, error) {
	b.Start()
	if err := b.Send(addr<<1 | 1); err != nil {
		b.Stop()
		return nil, err
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = b.Receive(i+1 < n)
	}
	b.Stop()
	return out, nil
}

func TestRead(t *testing.T) {
	testCases := []struct {
		name   string
		width  slave.Width
		value  uint32
		expect []byte
	}{
		{name: "16-bit", width: slave.Width2, value: 0x1234, expect: []byte{0x12, 0x34}},
		{name: "16-bit zero", width: slave.Width2, value: 0, expect: []byte{0, 0}},
		{name: "16-bit max", width: slave.Width2, value: 0xffff, expect: []byte{0xff, 0xff}},
		{name: "32-bit", width: slave.Width4, value: 0x12345678, expect: []byte{0x12, 0x34, 0x56, 0x78}},
		{name: "32-bit alternating", width: slave.Width4, value: 0xa55a00ff, expect: []byte{0xa5, 0x5a, 0x00, 0xff}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dev, b, rec := newDevice(t, slave.Config{Addr: 0x24, Width: tc.width})
			require.NoError(t, dev.SetTransmitValue(tc.value))
			out, err := read(b, 0x24, len(tc.expect))
			require.NoError(t, err)
			require.Equal(t, tc.expect, out)
			require.Equal(t, []slave.Outcome{slave.OutcomeCompleted}, rec.outcomes())
			require.Equal(t, len(tc.expect), rec.txs[0].BytesSent)
			require.Equal(t, byte(0x49), rec.txs[0].Received)
			state, cursor := dev.State()
			require.Equal(t, slave.StateIdle, state)
			require.Equal(t, 0, cursor)
		})
	}
}

func TestReadRepeated(t *testing.T) {
	dev, b, rec := newDevice(t, slave.DefaultConfig)
	for _, v := range []uint32{1, 0x0102, 0xfffe} {
		require.NoError(t, dev.SetTransmitValue(v))
		out := make([]byte, 2)
		require.NoError(t, b.Tx(0x24, nil, out))
		require.Equal(t, []byte{byte(v >> 8), byte(v)}, out)
	}
	stats := dev.Engine.Stats()
	require.Equal(t, uint64(3), stats.Transactions)
	require.Equal(t, uint64(3), stats.Completed)
	require.Equal(t, uint64(6), stats.BytesSent)
	require.Len(t, rec.txs, 3)
}

func TestEarlyNACK(t *testing.T) {
	dev, b, rec := newDevice(t, slave.DefaultConfig)
	require.NoError(t, dev.SetTransmitValue(0x1234))
	out, err := read(b, 0x24, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0x12}, out)
	require.Equal(t, []slave.Outcome{slave.OutcomeNACKed}, rec.outcomes())
	require.Equal(t, 1, rec.txs[0].BytesSent)
	state, cursor := dev.State()
	require.Equal(t, slave.StateIdle, state)
	require.Equal(t, 0, cursor)

	// the next transaction starts from the first byte.
	out, err = read(b, 0x24, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x12, 0x34}, out)
}

func TestAddressMismatch(t *testing.T) {
	dev, b, rec := newDevice(t, slave.DefaultConfig)
	require.NoError(t, dev.SetTransmitValue(0x1234))
	_, err := read(b, 0x25, 2)
	require.True(t, errors.Is(err, bus.ErrNACK))
	require.Equal(t, []slave.Outcome{slave.OutcomeMismatch}, rec.outcomes())
	require.Equal(t, byte(0x4b), rec.txs[0].Received)
	state, _ := dev.State()
	require.Equal(t, slave.StateIdle, state)

	err = b.Tx(0x25, nil, make([]byte, 2))
	require.True(t, errors.Is(err, bus.ErrNoSuchDevice))

	out, err := read(b, 0x24, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x12, 0x34}, out)
	stats := dev.Engine.Stats()
	require.Equal(t, uint64(2), stats.Mismatched)
	require.Equal(t, uint64(1), stats.Completed)
}

func TestWriteRejected(t *testing.T) {
	dev, b, rec := newDevice(t, slave.DefaultConfig)
	require.NoError(t, dev.SetTransmitValue(0x1234))
	err := b.Tx(0x24, []byte{0x55}, nil)
	require.True(t, errors.Is(err, bus.ErrNACK))
	require.Equal(t, []slave.Outcome{slave.OutcomeNACKed}, rec.outcomes())

	out := make([]byte, 2)
	require.NoError(t, b.Tx(0x24, nil, out))
	require.Equal(t, []byte{0x12, 0x34}, out)
}

func TestRestart(t *testing.T) {
	dev, b, rec := newDevice(t, slave.Config{Addr: 0x24, Width: slave.Width4})
	require.NoError(t, dev.SetTransmitValue(0xcafebabe))

	b.Start()
	require.NoError(t, b.Send(0x24<<1|1))
	require.Equal(t, byte(0xca), b.Receive(true))
	require.Equal(t, byte(0xfe), b.Receive(true))
	// restart without stop, the engine goes back to the address phase.
	b.Start()
	state, cursor := dev.State()
	require.Equal(t, slave.StateProcessAddress, state)
	require.Equal(t, 0, cursor)

	require.NoError(t, b.Send(0x24<<1|1))
	out := make([]byte, 4)
	for i := range out {
		out[i] = b.Receive(i < 3)
	}
	b.Stop()
	require.Equal(t, []byte{0xca, 0xfe, 0xba, 0xbe}, out)
	require.Equal(t, []slave.Outcome{slave.OutcomePreempted, slave.OutcomeCompleted}, rec.outcomes())
	require.Equal(t, 2, rec.txs[0].BytesSent)
}

func TestRestartAfterMismatch(t *testing.T) {
	dev, b, rec := newDevice(t, slave.DefaultConfig)
	require.NoError(t, dev.SetTransmitValue(0xbeef))

	// a write to another device followed by a read from us.
	b.Start()
	require.Error(t, b.Send(0x30<<1))
	b.Start()
	require.NoError(t, b.Send(0x24<<1|1))
	require.Equal(t, byte(0xbe), b.Receive(true))
	require.Equal(t, byte(0xef), b.Receive(false))
	b.Stop()
	require.Equal(t, []slave.Outcome{slave.OutcomeMismatch, slave.OutcomeCompleted}, rec.outcomes())
	state, _ := dev.State()
	require.Equal(t, slave.StateIdle, state)
}

func TestValueLatchedPerTransaction(t *testing.T) {
	dev, b, _ := newDevice(t, slave.DefaultConfig)
	require.NoError(t, dev.SetTransmitValue(0x1111))

	b.Start()
	require.NoError(t, b.Send(0x24<<1|1))
	require.Equal(t, byte(0x11), b.Receive(true))
	// published between bytes, served by the next transaction only.
	require.NoError(t, dev.SetTransmitValue(0x2222))
	require.Equal(t, byte(0x11), b.Receive(false))
	b.Stop()

	out := make([]byte, 2)
	require.NoError(t, b.Tx(0x24, nil, out))
	require.Equal(t, []byte{0x22, 0x22}, out)
	require.Equal(t, uint32(0x2222), dev.TransmitValue())
}

func TestStrayClocksIgnored(t *testing.T) {
	dev, b, rec := newDevice(t, slave.DefaultConfig)
	require.NoError(t, dev.SetTransmitValue(0x1234))
	// bytes without a start condition are not for anyone.
	require.Error(t, b.Send(0x24<<1|1))
	b.Receive(false)
	require.Empty(t, rec.txs)
	state, _ := dev.State()
	require.Equal(t, slave.StateIdle, state)

	out := make([]byte, 2)
	require.NoError(t, b.Tx(0x24, nil, out))
	require.Equal(t, []byte{0x12, 0x34}, out)
}

func TestScanFindsSlave(t *testing.T) {
	_, b, _ := newDevice(t, slave.Config{Addr: 0x42, Width: slave.Width2})
	found, err := b.Scan()
	require.NoError(t, err)
	require.Equal(t, []usi.Addr{0x42}, found)
}

func TestNewDevice(t *testing.T) {
	testCases := []struct {
		name string
		conf slave.Config
		ok   bool
	}{
		{name: "default", conf: slave.DefaultConfig, ok: true},
		{name: "32-bit", conf: slave.Config{Addr: 0x08, Width: slave.Width4}, ok: true},
		{name: "reserved address", conf: slave.Config{Addr: 0x03, Width: slave.Width2}},
		{name: "address too high", conf: slave.Config{Addr: 0x78, Width: slave.Width2}},
		{name: "bad width", conf: slave.Config{Addr: 0x24, Width: 3}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := slave.New(bus.New("test"), tc.conf)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestSetTransmitValueOverflow(t *testing.T) {
	dev, _, _ := newDevice(t, slave.DefaultConfig)
	require.NoError(t, dev.SetTransmitValue(0x1234))
	require.Error(t, dev.SetTransmitValue(0x10000))
	require.Equal(t, uint32(0x1234), dev.TransmitValue())
	require.Equal(t, []byte{0x12, 0x34}, dev.TransmitBytes())
}

func TestInitializeOnce(t *testing.T) {
	dev, _, _ := newDevice(t, slave.DefaultConfig)
	require.True(t, errors.Is(dev.Initialize(), usi.ErrAlreadyInitialized))
}

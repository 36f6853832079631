package master

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	"github.com/robotalks/i2cslave.go/pkg/l1/msgs"
	"github.com/robotalks/i2cslave.go/pkg/sim/bus"
	"github.com/robotalks/i2cslave.go/pkg/slave"
)

func newSlave(t *testing.T, conf slave.Config, value uint32) *bus.Bus {
	b := bus.New("master-test")
	dev, err := slave.New(b, conf)
	require.NoError(t, err)
	require.NoError(t, dev.Initialize())
	require.NoError(t, dev.SetTransmitValue(value))
	return b
}

func TestVoltage(t *testing.T) {
	require.InDelta(t, 0.6, Voltage(0xffff, 2, 0.6), 1e-9)
	require.InDelta(t, 0.3, Voltage(0x7fff, 2, 0.6), 1e-4)
	require.InDelta(t, 0, Voltage(0, 4, 0.6), 1e-9)
	require.InDelta(t, 1.2, Voltage(0xffffffff, 4, 1.2), 1e-9)
}

func TestReader(t *testing.T) {
	testCases := []struct {
		name   string
		width  slave.Width
		value  uint32
		signed int32
	}{
		{"16-bit", slave.Width2, 0x8000, -0x8000},
		{"16-bit small", slave.Width2, 0x0123, 0x0123},
		{"32-bit", slave.Width4, 0xfffffffe, -2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := newSlave(t, slave.Config{Addr: 0x24, Width: tc.width}, tc.value)
			r, err := NewReader(b, 0x24, int(tc.width))
			require.NoError(t, err)
			rd, err := r.Read()
			require.NoError(t, err)
			require.Equal(t, tc.value, rd.Value)
			require.Equal(t, tc.signed, rd.Signed)
			require.Len(t, rd.Raw, int(tc.width))
			require.InDelta(t, Voltage(tc.value, int(tc.width), DefaultVRef), rd.Voltage, 1e-9)
		})
	}
}

func TestReaderErrors(t *testing.T) {
	_, err := NewReader(bus.New("x"), 0x24, 3)
	require.Error(t, err)

	b := newSlave(t, slave.DefaultConfig, 1)
	r, err := NewReader(b, 0x30, 2)
	require.NoError(t, err)
	_, err = r.Read()
	require.True(t, errors.Is(err, bus.ErrNoSuchDevice))
}

type testCtx struct {
	now    time.Time
	posted []fx.Message
}

func (c *testCtx) Time() time.Time                                { return c.now }
func (c *testCtx) Context() context.Context                       { return context.Background() }
func (c *testCtx) PriorityLevel() int                             { return fx.PrLvReport }
func (c *testCtx) Messages() fx.MessageStore                      { return nil }
func (c *testCtx) PostMessage(msg fx.Message)                     { c.posted = append(c.posted, msg) }
func (c *testCtx) TriggerNext()                                   {}
func (c *testCtx) Defer(priorityLevel int, ctls ...fx.Controller) {}

type eventRecorder struct {
	events []fx.Message
}

func (r *eventRecorder) SendEvent(_ context.Context, msg fx.Message) error {
	r.events = append(r.events, msg)
	return nil
}

func TestPoller(t *testing.T) {
	b := newSlave(t, slave.DefaultConfig, 0x4000)
	r, err := NewReader(b, 0x24, 2)
	require.NoError(t, err)
	p := NewPoller(r, time.Second)
	reg := &eventRecorder{}
	p.Registrar = reg

	cc := &testCtx{now: time.Unix(100, 0)}
	require.NoError(t, p.Control(cc))
	cc.now = cc.now.Add(500 * time.Millisecond)
	require.NoError(t, p.Control(cc))
	cc.now = cc.now.Add(500 * time.Millisecond)
	require.NoError(t, p.Control(cc))

	require.Len(t, cc.posted, 2)
	require.Equal(t, cc.posted, reg.events)
	ev := cc.posted[0].(*msgs.SampleEvent)
	require.EqualValues(t, 0x24, ev.Addr)
	require.EqualValues(t, 0x4000, ev.Value)
	require.Equal(t, []byte{0x40, 0x00}, ev.Raw)
	rd, reads, fails := p.Last()
	require.EqualValues(t, 0x4000, rd.Value)
	require.EqualValues(t, 2, reads)
	require.EqualValues(t, 0, fails)
}

func TestPollerReadFailure(t *testing.T) {
	b := newSlave(t, slave.DefaultConfig, 1)
	r, err := NewReader(b, 0x31, 2)
	require.NoError(t, err)
	p := NewPoller(r, 0)
	require.Equal(t, DefaultPollInterval, p.Interval)
	cc := &testCtx{now: time.Unix(100, 0)}
	require.NoError(t, p.Control(cc))
	require.Empty(t, cc.posted)
	_, reads, fails := p.Last()
	require.EqualValues(t, 0, reads)
	require.EqualValues(t, 1, fails)
}

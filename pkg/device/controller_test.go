package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/msgs"
	"github.com/robotalks/i2cslave.go/pkg/sim/bus"
	"github.com/robotalks/i2cslave.go/pkg/slave"
	"github.com/robotalks/i2cslave.go/pkg/usi"
)

type testCtx struct {
	msgs []fx.Message
}

func (c *testCtx) Time() time.Time                                { return time.Now() }
func (c *testCtx) Context() context.Context                       { return context.Background() }
func (c *testCtx) PriorityLevel() int                             { return fx.PrLvControl }
func (c *testCtx) Messages() fx.MessageStore                      { return c }
func (c *testCtx) PostMessage(msg fx.Message)                     {}
func (c *testCtx) TriggerNext()                                   {}
func (c *testCtx) Defer(priorityLevel int, ctls ...fx.Controller) {}
func (c *testCtx) Len() int                                       { return len(c.msgs) }

func (c *testCtx) Take(fn func(fx.Message) bool) {
	var remains []fx.Message
	for _, msg := range c.msgs {
		if !fn(msg) {
			remains = append(remains, msg)
		}
	}
	c.msgs = remains
}

type command struct {
	msg   fx.Message
	reply fx.Message
}

func (c *command) Msg() fx.Message { return c.msg }

func (c *command) Done(reply fx.Message) error {
	c.reply = reply
	return nil
}

type eventRecorder struct {
	events []fx.Message
}

func (r *eventRecorder) SendEvent(_ context.Context, msg fx.Message) error {
	r.events = append(r.events, msg)
	return nil
}

type holder struct {
	held bool
}

func (h *holder) Hold(held bool) { h.held = held }

type testEnv struct {
	t    *testing.T
	bus  *bus.Bus
	dev  *slave.Device
	ctl  *Controller
	reg  *eventRecorder
	prod *holder
}

func newTestEnv(t *testing.T) *testEnv {
	b := bus.New("device-test")
	dev, err := slave.New(b, slave.DefaultConfig)
	require.NoError(t, err)
	ctl := New(dev)
	require.NoError(t, dev.Initialize())
	e := &testEnv{t: t, bus: b, dev: dev, ctl: ctl, reg: &eventRecorder{}, prod: &holder{}}
	ctl.Registrar = e.reg
	ctl.Producer = e.prod
	ctl.Scanner = b
	return e
}

// do runs one iteration with a command and returns the reply.
func (e *testEnv) do(msg fx.Message) fx.Message {
	cmd := &command{msg: msg}
	cc := &testCtx{msgs: []fx.Message{&l1.CommandMsg{Command: cmd}}}
	require.NoError(e.t, e.ctl.Control(cc))
	require.Zero(e.t, cc.Len())
	return cmd.reply
}

func TestValueQueryAndSet(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.dev.SetTransmitValue(0x1234))
	require.Equal(t, &msgs.ValueReply{Value: 0x1234, Width: 2, Raw: []byte{0x12, 0x34}}, e.do(&msgs.ValueQuery{}))

	require.Equal(t, msgs.NewCommandOK(), e.do(&msgs.ValueSet{Value: 0xbeef}))
	require.True(t, e.prod.held)
	require.True(t, e.ctl.Overridden())
	out := make([]byte, 2)
	require.NoError(t, e.bus.Tx(0x24, nil, out))
	require.Equal(t, []byte{0xbe, 0xef}, out)

	reply := e.do(&msgs.ValueSet{Value: 0x10000})
	require.IsType(t, &msgs.CommandErr{}, reply)

	require.Equal(t, msgs.NewCommandOK(), e.do(&msgs.ValueSet{Release: true}))
	require.False(t, e.prod.held)
	require.False(t, e.ctl.Overridden())
}

func TestStatusAndEvents(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.dev.SetTransmitValue(0x0102))
	out := make([]byte, 2)
	require.NoError(t, e.bus.Tx(0x24, nil, out))
	require.Error(t, e.bus.Tx(0x24, []byte{1}, nil))

	status := e.do(&msgs.StatusQuery{}).(*msgs.Status)
	require.EqualValues(t, 0x24, status.Addr)
	require.EqualValues(t, 2, status.Width)
	require.Equal(t, slave.StateIdle.String(), status.State)
	require.EqualValues(t, 0x0102, status.Value)
	require.EqualValues(t, 2, status.Transactions)
	require.EqualValues(t, 1, status.Completed)
	require.EqualValues(t, 1, status.Nacked)
	// the rejected write still shifted one byte out.
	require.EqualValues(t, 3, status.BytesSent)

	require.Equal(t, []fx.Message{
		&msgs.TransactionEvent{Outcome: "completed", Received: 0x49, BytesSent: 2},
		&msgs.TransactionEvent{Outcome: "nacked", Received: 0x48, BytesSent: 1},
	}, e.reg.events)
}

func TestScan(t *testing.T) {
	e := newTestEnv(t)
	require.Equal(t, &msgs.ScanReply{Addrs: []uint32{0x24}}, e.do(&msgs.ScanQuery{}))

	e.ctl.Scanner = nil
	require.Equal(t, msgs.NewCommandErr(ErrNoScanner), e.do(&msgs.ScanQuery{}))
}

func TestUnhandledMessagesLeft(t *testing.T) {
	e := newTestEnv(t)
	other := &command{msg: &msgs.SampleEvent{}}
	cc := &testCtx{msgs: []fx.Message{&msgs.TransactionEvent{}, &l1.CommandMsg{Command: other}}}
	require.NoError(t, e.ctl.Control(cc))
	require.Equal(t, 2, cc.Len())
	require.Nil(t, other.reply)
}

type failingScanner struct{}

func (failingScanner) Scan() ([]usi.Addr, error) { return nil, errors.New("bus busy") }

func TestDroppedReports(t *testing.T) {
	e := newTestEnv(t)
	e.ctl.Scanner = failingScanner{}
	require.Equal(t, &msgs.CommandErr{Message: "bus busy"}, e.do(&msgs.ScanQuery{}))

	for i := 0; i < DefaultQueueSize+3; i++ {
		e.ctl.TransactionDone(slave.Transaction{})
	}
	require.EqualValues(t, 3, e.ctl.Dropped())
}

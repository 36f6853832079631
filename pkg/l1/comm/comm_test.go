package comm_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm/stream"
	"github.com/robotalks/i2cslave.go/pkg/l1/msgs"
)

type testEnv struct {
	t      *testing.T
	cancel func()
	conn   *comm.DeviceConn
	events chan *msgs.SampleEvent
	done   []chan error
}

func newTestEnv(t *testing.T) *testEnv {
	devEnd, hostEnd := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	env := &testEnv{t: t, cancel: cancel, events: make(chan *msgs.SampleEvent, 4)}

	reg := comm.NewRegistrar(stream.New(devEnd))
	devLoop := fx.NewLoop().Add(reg, &comm.UnsupportedCommands{})
	devLoop.AddController(fx.PrLvControl, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().Take(func(msg fx.Message) bool {
			cmd, ok := msg.(*l1.CommandMsg)
			if !ok {
				return false
			}
			switch m := cmd.Command.Msg().(type) {
			case *msgs.ValueQuery:
				cmd.Command.Done(&msgs.ValueReply{Value: 42, Width: 2})
			case *msgs.ValueSet:
				cmd.Command.Done(msgs.NewCommandOK())
				reg.SendEvent(cc.Context(), &msgs.SampleEvent{Value: m.Value})
			default:
				return false
			}
			return true
		})
		return nil
	}))

	env.conn = comm.NewDeviceConn(stream.New(hostEnd))
	hostLoop := fx.NewLoop().Add(env.conn)
	hostLoop.AddController(fx.PrLvControl, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().Take(func(msg fx.Message) bool {
			ev, ok := msg.(*msgs.SampleEvent)
			if ok {
				env.events <- ev
			}
			return ok
		})
		return nil
	}))

	for _, loop := range []*fx.Loop{devLoop, hostLoop} {
		ch := make(chan error, 1)
		go func(loop *fx.Loop) { ch <- loop.Run(ctx) }(loop)
		env.done = append(env.done, ch)
	}
	return env
}

func (e *testEnv) do(msg fx.Message) l1.Result {
	select {
	case res := <-e.conn.DoCommand(msg).ResultChan():
		return res
	case <-time.After(5 * time.Second):
		e.t.Fatal("command timeout")
	}
	return l1.Result{}
}

func (e *testEnv) stop() {
	e.cancel()
	for _, ch := range e.done {
		require.Equal(e.t, context.Canceled, <-ch)
	}
}

func TestCommandReply(t *testing.T) {
	env := newTestEnv(t)
	defer env.stop()

	res := env.do(&msgs.ValueQuery{})
	require.NoError(t, res.Err)
	require.Equal(t, &msgs.ValueReply{Value: 42, Width: 2}, res.Msg)
	require.Zero(t, env.conn.Pending())
}

func TestUnsupportedCommand(t *testing.T) {
	env := newTestEnv(t)
	defer env.stop()

	res := env.do(&msgs.ScanQuery{})
	require.Error(t, res.Err)
	require.Equal(t, msgs.ErrUnsupportedCommand.Error(), res.Err.Error())
}

func TestEvent(t *testing.T) {
	env := newTestEnv(t)
	defer env.stop()

	res := env.do(&msgs.ValueSet{Value: 0x1234})
	require.NoError(t, res.Err)
	require.IsType(t, &msgs.CommandOK{}, res.Msg)
	select {
	case ev := <-env.events:
		require.Equal(t, uint32(0x1234), ev.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}

func TestCommandNotSent(t *testing.T) {
	env := newTestEnv(t)
	defer env.stop()

	res := env.do(&msgs.SampleEvent{})
	require.Equal(t, msgs.ErrNotCommand, res.Err)
}

func TestCommandExpired(t *testing.T) {
	devEnd, hostEnd := net.Pipe()
	defer devEnd.Close()
	// commands are drained, nothing is ever replied.
	go func() {
		buf := make([]byte, 256)
		for {
			if _, err := devEnd.Read(buf); err != nil {
				return
			}
		}
	}()
	conn := comm.NewDeviceConn(stream.New(hostEnd))
	conn.Expiration = 10 * time.Millisecond
	loop := fx.NewLoop()
	loop.Interval = 10 * time.Millisecond
	loop.Add(conn)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	select {
	case res := <-conn.DoCommand(&msgs.ValueQuery{}).ResultChan():
		require.Equal(t, context.DeadlineExceeded, res.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("command not expired")
	}
}

package comm

import (
	"context"
	"sync"
	"time"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/msgs"
)

// DefaultCommandExpiration is how long a command waits for its reply.
const DefaultCommandExpiration = time.Second

// DeviceConn is the host side of a Pipe implementing l1.DeviceConn. Events
// are posted into the loop, replies complete the pending futures.
type DeviceConn struct {
	Expiration time.Duration

	pipe    Pipe
	lock    sync.Mutex
	seq     uint32
	pending map[uint32]*future
}

// NewDeviceConn creates a DeviceConn on a transport.
func NewDeviceConn(rw PacketReadWriter) *DeviceConn {
	c := &DeviceConn{}
	c.Init(rw)
	return c
}

// Init sets up the DeviceConn on a transport.
func (c *DeviceConn) Init(rw PacketReadWriter) {
	c.Expiration = DefaultCommandExpiration
	c.pipe.ReadWriter = rw
	c.pipe.Handler = msgs.HandleTypedMsgFunc(c.handleTypedMsg)
	c.pending = make(map[uint32]*future)
}

// DoCommand implements l1.DeviceConn.
func (c *DeviceConn) DoCommand(msg fx.Message) l1.CommandFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	// 0 is never used as a sequence.
	if c.seq++; c.seq == 0 {
		c.seq++
	}
	f := &future{
		seq:      c.seq,
		expireAt: time.Now().Add(c.Expiration),
		ch:       make(chan l1.Result, 1),
	}
	if err := c.pipe.SendCommand(msg, f.seq); err != nil {
		f.complete(l1.Result{Err: err})
		return f
	}
	c.pending[f.seq] = f
	return f
}

// Pending returns the number of commands waiting for replies.
func (c *DeviceConn) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.pending)
}

// AddToLoop implements LoopAdder.
func (c *DeviceConn) AddToLoop(loop *fx.Loop) {
	loop.Add(&c.pipe)
	loop.AddController(fx.PrLvIdle, fx.ControlFunc(c.expire))
}

func (c *DeviceConn) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		ctl := fx.LoopCtlFrom(ctx)
		ctl.PostMessage(msg)
		ctl.TriggerNext()
		return nil
	}
	c.lock.Lock()
	f := c.pending[typed.Sequence]
	delete(c.pending, typed.Sequence)
	c.lock.Unlock()
	if f != nil {
		res := l1.Result{Msg: msg}
		if cmdErr, ok := msg.(*msgs.CommandErr); ok {
			res.Err = cmdErr
		}
		f.complete(res)
	}
	return nil
}

func (c *DeviceConn) expire(cc fx.ControlContext) error {
	now := cc.Time()
	var expired []*future
	c.lock.Lock()
	for seq, f := range c.pending {
		if !f.expireAt.After(now) {
			expired = append(expired, f)
			delete(c.pending, seq)
		}
	}
	c.lock.Unlock()
	for _, f := range expired {
		f.complete(l1.Result{Err: context.DeadlineExceeded})
	}
	return nil
}

type future struct {
	seq      uint32
	expireAt time.Time
	ch       chan l1.Result
}

func (f *future) ResultChan() <-chan l1.Result {
	return f.ch
}

func (f *future) complete(res l1.Result) {
	f.ch <- res
	close(f.ch)
}

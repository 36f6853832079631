// Package device exposes a slave device to the loop: it serves the l1
// commands reading and overriding the transmit value, and reports the
// transactions the engine sees.
package device

import (
	"errors"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/i2cslave.go/pkg/codec"
	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/msgs"
	"github.com/robotalks/i2cslave.go/pkg/slave"
	"github.com/robotalks/i2cslave.go/pkg/usi"
)

// DefaultQueueSize is the number of transactions buffered between the
// interrupt handler and the loop.
const DefaultQueueSize = 64

// ErrNoScanner is replied to ScanQuery when no bus master is available.
var ErrNoScanner = errors.New("bus scan not available")

// Holder stops the producer while the value is overridden.
type Holder interface {
	Hold(bool)
}

// Scanner scans the bus for slaves.
type Scanner interface {
	Scan() ([]usi.Addr, error)
}

// Controller serves commands for one slave.Device.
type Controller struct {
	Device    *slave.Device
	Registrar l1.Registrar
	Producer  Holder
	Scanner   Scanner

	txCh       chan slave.Transaction
	dropped    uint64
	overridden bool
}

// New creates a Controller observing dev. It must be created before the
// device is initialized.
func New(dev *slave.Device) *Controller {
	c := &Controller{Device: dev, txCh: make(chan slave.Transaction, DefaultQueueSize)}
	dev.Engine.Observer = c
	return c
}

// TransactionDone implements slave.Observer. It runs in the interrupt
// handler, reports are dropped when the queue is full.
func (c *Controller) TransactionDone(t slave.Transaction) {
	select {
	case c.txCh <- t:
	default:
		atomic.AddUint64(&c.dropped, 1)
	}
}

// Dropped returns the number of transactions not reported.
func (c *Controller) Dropped() uint64 {
	return atomic.LoadUint64(&c.dropped)
}

// Overridden tells if the transmit value was set by command.
func (c *Controller) Overridden() bool {
	return c.overridden
}

// Control implements Controller.
func (c *Controller) Control(cc fx.ControlContext) error {
	var errs fx.AggregatedError
	c.report(cc, &errs)
	cc.Messages().Take(func(msg fx.Message) bool {
		cmd, ok := msg.(*l1.CommandMsg)
		if !ok {
			return false
		}
		reply := c.handle(cmd.Command.Msg())
		if reply == nil {
			return false
		}
		errs.Add(cmd.Command.Done(reply))
		return true
	})
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvControl, c)
}

func (c *Controller) report(cc fx.ControlContext, errs *fx.AggregatedError) {
	for {
		var t slave.Transaction
		select {
		case t = <-c.txCh:
		default:
			return
		}
		glog.V(2).Infof("transaction %s: addr byte %#02x, %d bytes sent", t.Outcome, t.Received, t.BytesSent)
		if c.Registrar != nil {
			errs.Add(c.Registrar.SendEvent(cc.Context(), &msgs.TransactionEvent{
				Outcome:   t.Outcome.String(),
				Received:  uint32(t.Received),
				BytesSent: uint32(t.BytesSent),
			}))
		}
	}
}

// handle returns nil for commands not served here.
func (c *Controller) handle(msg fx.Message) fx.Message {
	switch m := msg.(type) {
	case *msgs.ValueQuery:
		raw := c.Device.TransmitBytes()
		v, err := codec.Unpack(raw)
		if err != nil {
			return msgs.NewCommandErr(err)
		}
		return &msgs.ValueReply{Value: v, Width: uint32(len(raw)), Raw: raw}
	case *msgs.ValueSet:
		return c.setValue(m)
	case *msgs.StatusQuery:
		return c.status()
	case *msgs.ScanQuery:
		if c.Scanner == nil {
			return msgs.NewCommandErr(ErrNoScanner)
		}
		addrs, err := c.Scanner.Scan()
		if err != nil {
			return msgs.NewCommandErr(err)
		}
		reply := &msgs.ScanReply{}
		for _, a := range addrs {
			reply.Addrs = append(reply.Addrs, uint32(a))
		}
		return reply
	}
	return nil
}

func (c *Controller) setValue(m *msgs.ValueSet) fx.Message {
	if m.Release {
		glog.Info("transmit value released")
		c.overridden = false
		if c.Producer != nil {
			c.Producer.Hold(false)
		}
		return msgs.NewCommandOK()
	}
	if err := c.Device.SetTransmitValue(m.Value); err != nil {
		return msgs.NewCommandErr(err)
	}
	glog.Infof("transmit value overridden: %d", m.Value)
	c.overridden = true
	if c.Producer != nil {
		c.Producer.Hold(true)
	}
	return msgs.NewCommandOK()
}

func (c *Controller) status() *msgs.Status {
	state, cursor := c.Device.State()
	stats := c.Device.Engine.Stats()
	return &msgs.Status{
		Addr:         uint32(c.Device.Engine.Addr()),
		Width:        uint32(c.Device.Buffer.Len()),
		State:        state.String(),
		Cursor:       uint32(cursor),
		Value:        c.Device.TransmitValue(),
		Overridden:   c.overridden,
		Transactions: stats.Transactions,
		Completed:    stats.Completed,
		Nacked:       stats.NACKed,
		Mismatched:   stats.Mismatched,
		Preempted:    stats.Preempted,
		BytesSent:    stats.BytesSent,
	}
}

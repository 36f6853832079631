// Package slave implements a transmit-only I2C slave on top of a
// bit-serial shift peripheral.
//
// The Engine reconstructs the bus protocol from two interrupt sources: the
// start condition flag and the completion of an armed bit count. Each
// interrupt advances the state machine exactly once and the handler never
// blocks. Whatever happens on the bus, the engine falls back to Idle and is
// ready for the next start condition.
package slave

import (
	"sync/atomic"

	"github.com/robotalks/i2cslave.go/pkg/usi"
)

const (
	rwBit   byte = 0x01
	ackBit  byte = 0x00
	nackBit byte = 0xff
)

// Stats are the counters of the engine.
type Stats struct {
	Transactions uint64 // address matched
	Completed    uint64
	NACKed       uint64 // master stopped before the last byte
	Mismatched   uint64
	Preempted    uint64
	BytesSent    uint64
}

// Engine is the protocol state machine. All fields except the counters are
// owned by the interrupt handler.
type Engine struct {
	stats Stats // accessed atomically, keep first for alignment

	Observer Observer

	port    usi.Port
	buf     *Buffer
	addr    usi.Addr
	state   State
	cmpAddr byte
	rx      byte
	dataIdx int
}

// NewEngine creates an Engine in Idle.
func NewEngine(port usi.Port, buf *Buffer, addr usi.Addr) *Engine {
	return &Engine{
		port:    port,
		buf:     buf,
		addr:    addr,
		state:   StateIdle,
		cmpAddr: addr.Shifted(),
	}
}

// OnBusEvent implements usi.Handler.
func (e *Engine) OnBusEvent() {
	p := e.port
	if p.StartPending() {
		switch e.state {
		case StateAckNack:
			// the byte being shifted out never completed.
			e.dataIdx--
			e.done(OutcomePreempted)
		case StateTxData, StateTxCheck:
			e.done(OutcomePreempted)
		}
		e.state = StateAddress
	}

	switch e.state {
	case StateIdle:
	case StateAddress:
		p.SetOutput(false)
		p.Arm(8)
		p.ClearStart()
		e.cmpAddr = e.addr.Shifted()
		e.dataIdx = 0
		e.state = StateProcessAddress
	case StateProcessAddress:
		e.rx = p.Shift()
		if e.rx&rwBit != 0 {
			e.cmpAddr |= rwBit
		}
		p.SetOutput(true)
		if e.rx == e.cmpAddr {
			p.Load(ackBit)
			e.buf.latch()
			atomic.AddUint64(&e.stats.Transactions, 1)
			e.state = StateTxData
		} else {
			p.Load(nackBit)
			e.done(OutcomeMismatch)
			e.state = StateRxCheck
		}
		p.Arm(1)
	case StateRxCheck:
		// nothing is ever received.
		e.state = e.prepStart()
	case StateTxData:
		e.state = e.txData()
	case StateAckNack:
		p.SetOutput(false)
		p.Arm(1)
		e.state = StateTxCheck
	case StateTxCheck:
		switch {
		case p.Shift()&0x01 != 0:
			if e.dataIdx < e.buf.Len() {
				e.finish(OutcomeNACKed)
			} else {
				e.finish(OutcomeCompleted)
			}
		case e.dataIdx < e.buf.Len():
			e.state = e.txData()
		default:
			e.finish(OutcomeCompleted)
		}
	}
	p.ClearPending()
}

func (e *Engine) txData() State {
	e.port.SetOutput(true)
	e.port.Load(e.buf.at(e.dataIdx))
	e.port.Arm(8)
	e.dataIdx++
	return StateAckNack
}

func (e *Engine) prepStart() State {
	e.port.SetOutput(false)
	e.cmpAddr = e.addr.Shifted()
	return StateIdle
}

func (e *Engine) finish(o Outcome) {
	e.done(o)
	e.dataIdx = 0
	e.state = e.prepStart()
}

func (e *Engine) done(o Outcome) {
	t := Transaction{Outcome: o, Received: e.rx, BytesSent: e.dataIdx}
	switch o {
	case OutcomeCompleted:
		atomic.AddUint64(&e.stats.Completed, 1)
	case OutcomeNACKed:
		atomic.AddUint64(&e.stats.NACKed, 1)
	case OutcomeMismatch:
		atomic.AddUint64(&e.stats.Mismatched, 1)
	case OutcomePreempted:
		atomic.AddUint64(&e.stats.Preempted, 1)
	}
	atomic.AddUint64(&e.stats.BytesSent, uint64(t.BytesSent))
	if ob := e.Observer; ob != nil {
		ob.TransactionDone(t)
	}
}

// Stats returns a copy of the counters. Safe from any goroutine.
func (e *Engine) Stats() Stats {
	return Stats{
		Transactions: atomic.LoadUint64(&e.stats.Transactions),
		Completed:    atomic.LoadUint64(&e.stats.Completed),
		NACKed:       atomic.LoadUint64(&e.stats.NACKed),
		Mismatched:   atomic.LoadUint64(&e.stats.Mismatched),
		Preempted:    atomic.LoadUint64(&e.stats.Preempted),
		BytesSent:    atomic.LoadUint64(&e.stats.BytesSent),
	}
}

// Addr returns the slave address.
func (e *Engine) Addr() usi.Addr {
	return e.addr
}

// State returns the current state. Interrupts must be masked.
func (e *Engine) State() State {
	return e.state
}

// Cursor returns the read cursor into the buffer. Interrupts must be masked.
func (e *Engine) Cursor() int {
	return e.dataIdx
}

package slave

import (
	"github.com/robotalks/i2cslave.go/pkg/codec"
	"github.com/robotalks/i2cslave.go/pkg/usi"
)

// Config defines a slave device.
type Config struct {
	Addr  usi.Addr
	Width Width
}

// DefaultConfig is the configuration of the reference firmware.
var DefaultConfig = Config{
	Addr:  usi.DefaultAddr,
	Width: Width2,
}

// Device is the producer facing side of the slave: it owns the engine,
// the transmit buffer and the bus adapter of one peripheral.
type Device struct {
	Engine  *Engine
	Buffer  *Buffer
	Adapter *usi.Adapter

	platform usi.Platform
}

// New creates a Device on a platform. Initialize must be called to arm it.
func New(p usi.Platform, conf Config) (*Device, error) {
	if !conf.Addr.Valid() {
		return nil, &usi.AddrError{Addr: uint(conf.Addr)}
	}
	buf, err := NewBuffer(conf.Width)
	if err != nil {
		return nil, err
	}
	eng := NewEngine(usi.NewPort(p), buf, conf.Addr)
	return &Device{
		Engine:   eng,
		Buffer:   buf,
		Adapter:  usi.NewAdapter(p, eng),
		platform: p,
	}, nil
}

// Initialize configures the peripheral and starts serving the bus.
// The engine Observer must be set before.
func (d *Device) Initialize() error {
	return d.Adapter.Initialize(d.Engine.Addr())
}

// SetTransmitValue publishes v to be served by the next transaction.
// The store is atomic to the interrupt handler.
func (d *Device) SetTransmitValue(v uint32) error {
	var scratch [codec.Width32]byte
	b := scratch[:d.Buffer.Len()]
	if err := codec.Pack(b, v); err != nil {
		return err
	}
	usi.Masked(d.platform, func() {
		d.Buffer.store(b)
	})
	return nil
}

// TransmitBytes returns a copy of the last published value as it goes on
// the wire.
func (d *Device) TransmitBytes() (b []byte) {
	usi.Masked(d.platform, func() {
		b = d.Buffer.snapshot()
	})
	return
}

// TransmitValue returns the last published value.
func (d *Device) TransmitValue() uint32 {
	// the buffer width is always a codec width.
	v, _ := codec.Unpack(d.TransmitBytes())
	return v
}

// State returns the engine state and read cursor.
func (d *Device) State() (state State, cursor int) {
	usi.Masked(d.platform, func() {
		state, cursor = d.Engine.State(), d.Engine.Cursor()
	})
	return
}

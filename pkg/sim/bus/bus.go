// Package bus simulates an I2C bus with a master on one side and a
// bit-serial shift peripheral (usi) on the other.
//
// The simulation is bit accurate as far as the peripheral can tell: the
// data line is open-drain (wired-AND of master and peripheral), the
// peripheral shifts one bit per clock while its counter is armed, and the
// completion of a count raises the interrupt synchronously, before the next
// clock. Interrupt masking is a mutex shared with the interrupt dispatch,
// so a masked foreground stalls the master exactly like a stretched clock.
package bus

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"

	"github.com/robotalks/i2cslave.go/pkg/usi"
)

var (
	// ErrNACK signals the addressed device did not ACK a byte.
	ErrNACK = errors.New("NACK received")
	// ErrNoSuchDevice signals no device ACKed the address.
	ErrNoSuchDevice = errors.New("no such device")
	// ErrTenBitAddr signals 10-bit addressing was requested.
	ErrTenBitAddr = errors.New("10-bit addressing not supported")
)

// DefaultSpeed is the bus speed after creation.
const DefaultSpeed = 100 * physic.KiloHertz

// Bus is a simulated I2C bus with one attached shift peripheral.
// It implements usi.Platform for the peripheral side and i2c.Bus for the
// master side.
type Bus struct {
	Name string

	mu      sync.Mutex // interrupt mask, held while the handler runs
	regs    [usi.NumRegisters]byte
	handler usi.Handler
	enabled bool

	txMu  sync.Mutex // bus ownership for whole transactions
	speed physic.Frequency
	stats Stats
}

// Stats are wire-level counters.
type Stats struct {
	Starts     int
	Stops      int
	Clocks     int
	Interrupts int
}

var (
	_ usi.Platform = (*Bus)(nil)
	_ i2c.Bus      = (*Bus)(nil)
)

// New creates a Bus, the peripheral stays in reset until initialized.
func New(name string) *Bus {
	b := &Bus{Name: name, speed: DefaultSpeed}
	b.regs[usi.CTL0] = usi.CTL0SWRST
	return b
}

// Register makes the bus available to i2creg.Open under its name.
func (b *Bus) Register() error {
	return i2creg.Register(b.Name, nil, -1, func() (i2c.BusCloser, error) {
		return &handle{Bus: b}, nil
	})
}

// handle is an opened reference which must not tear down the shared bus.
type handle struct {
	*Bus
}

func (h *handle) Close() error {
	return nil
}

// Read implements usi.RegisterFile.
func (b *Bus) Read(reg usi.Register) byte {
	return b.regs[reg]
}

// Write implements usi.RegisterFile.
func (b *Bus) Write(reg usi.Register, v byte) {
	b.regs[reg] = v
}

// Attach implements usi.Interrupts.
func (b *Bus) Attach(h usi.Handler) {
	b.handler = h
}

// Enable implements usi.Interrupts.
func (b *Bus) Enable() {
	b.mu.Lock()
	b.enabled = true
	b.mu.Unlock()
}

// Mask implements usi.Interrupts.
func (b *Bus) Mask() {
	b.mu.Lock()
}

// Unmask implements usi.Interrupts.
func (b *Bus) Unmask() {
	b.mu.Unlock()
}

// String implements i2c.Bus.
func (b *Bus) String() string {
	return b.Name
}

// SetSpeed implements i2c.Bus.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("%s: invalid speed %s", b.Name, f)
	}
	b.mu.Lock()
	b.speed = f
	b.mu.Unlock()
	return nil
}

// Speed returns the bus speed.
func (b *Bus) Speed() physic.Frequency {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speed
}

// Stats returns a copy of the wire counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Start issues a (repeated) start condition.
func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Starts++
	if b.active() {
		b.regs[usi.CTL1] |= usi.CTL1STTIFG
		b.raise()
	}
}

// Stop issues a stop condition.
func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Stops++
	if b.active() {
		b.regs[usi.CTL1] |= usi.CTL1STP
	}
}

// Send clocks out a byte from the master and samples the ACK bit.
func (b *Bus) Send(v byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 7; i >= 0; i-- {
		b.clock(v&(1<<uint(i)) != 0)
	}
	if b.clock(true) {
		return ErrNACK
	}
	return nil
}

// Receive clocks in a byte and answers with ACK or NACK.
func (b *Bus) Receive(ack bool) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var v byte
	for i := 0; i < 8; i++ {
		v <<= 1
		if b.clock(true) {
			v |= 1
		}
	}
	b.clock(!ack)
	return v
}

// Tx implements i2c.Bus. Writes go first, reads follow after a repeated
// start. The last byte read is NACKed.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return ErrTenBitAddr
	}
	b.txMu.Lock()
	defer b.txMu.Unlock()
	err := b.tx(byte(addr), w, r)
	b.Stop()
	if err != nil {
		return fmt.Errorf("%s: addr %#02x: %w", b.Name, addr, err)
	}
	return nil
}

func (b *Bus) tx(addr byte, w, r []byte) error {
	if len(w) > 0 || len(r) == 0 {
		b.Start()
		if err := b.Send(addr << 1); err != nil {
			return ErrNoSuchDevice
		}
		for n, v := range w {
			if err := b.Send(v); err != nil {
				return fmt.Errorf("write byte %d: %w", n, err)
			}
		}
	}
	if len(r) > 0 {
		b.Start()
		if err := b.Send(addr<<1 | 1); err != nil {
			return ErrNoSuchDevice
		}
		for n := range r {
			r[n] = b.Receive(n+1 < len(r))
		}
	}
	return nil
}

// Ping checks if a device ACKs a read at addr. An ACKed read is terminated
// after one byte.
func (b *Bus) Ping(addr uint16) (bool, error) {
	if addr > 0x7f {
		return false, ErrTenBitAddr
	}
	b.txMu.Lock()
	defer b.txMu.Unlock()
	b.Start()
	found := b.Send(byte(addr)<<1|1) == nil
	if found {
		b.Receive(false)
	}
	b.Stop()
	return found, nil
}

// Scan pings all slave addresses.
func (b *Bus) Scan() ([]usi.Addr, error) {
	var found []usi.Addr
	for a := usi.MinAddr; a <= usi.MaxAddr; a++ {
		ok, err := b.Ping(uint16(a))
		if err != nil {
			return found, err
		}
		if ok {
			found = append(found, a)
		}
	}
	return found, nil
}

func (b *Bus) active() bool {
	return b.regs[usi.CTL0]&usi.CTL0SWRST == 0 && b.regs[usi.CTL1]&usi.CTL1I2C != 0
}

// clock runs one SCL pulse with the master driving sda (true = released)
// and returns the resulting line level. b.mu must be held.
func (b *Bus) clock(sda bool) bool {
	b.stats.Clocks++
	if !b.active() {
		return sda
	}
	if b.regs[usi.CTL0]&usi.CTL0OE != 0 && b.regs[usi.SRL]&0x80 == 0 {
		sda = false
	}
	cnt := b.regs[usi.CNT] & usi.CNTBitMask
	// a pending flag holds SCL low, nothing is shifted.
	if cnt == 0 || b.regs[usi.CTL1]&usi.CTL1IFG != 0 {
		return sda
	}
	var in byte
	if sda {
		in = 1
	}
	b.regs[usi.SRL] = b.regs[usi.SRL]<<1 | in
	cnt--
	b.regs[usi.CNT] = b.regs[usi.CNT]&^usi.CNTBitMask | cnt
	if cnt == 0 {
		b.regs[usi.CTL1] |= usi.CTL1IFG
		b.raise()
	}
	return sda
}

// raise dispatches the interrupt. b.mu must be held.
func (b *Bus) raise() {
	if !b.enabled || b.handler == nil {
		return
	}
	ctl1 := b.regs[usi.CTL1]
	if (ctl1&usi.CTL1STTIFG != 0 && ctl1&usi.CTL1STTIE != 0) ||
		(ctl1&usi.CTL1IFG != 0 && ctl1&usi.CTL1IE != 0) {
		b.stats.Interrupts++
		b.handler.OnBusEvent()
	}
}

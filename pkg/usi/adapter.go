package usi

import (
	"errors"
	"fmt"
	"sync"
)

// Handler is invoked by the platform on bus interrupts: a start condition
// or the completion of an armed shift. The platform never invokes it
// re-entrantly nor while interrupts are masked.
type Handler interface {
	OnBusEvent()
}

// HandlerFunc is the func form of Handler.
type HandlerFunc func()

// OnBusEvent implements Handler.
func (f HandlerFunc) OnBusEvent() {
	f()
}

// Interrupts is the interrupt controller of a platform.
type Interrupts interface {
	// Attach sets the handler of the peripheral interrupt vector.
	// It must be called with interrupts masked.
	Attach(Handler)
	// Enable globally enables interrupt delivery. It must not be called
	// with interrupts masked.
	Enable()
	// Mask suspends interrupt delivery until Unmask.
	Mask()
	// Unmask resumes interrupt delivery.
	Unmask()
}

// Platform is a peripheral with its interrupt controller.
type Platform interface {
	RegisterFile
	Interrupts
}

// Addr is a 7-bit I2C address.
type Addr uint8

// DefaultAddr is the default slave address.
const DefaultAddr Addr = 0x24

// Address range usable by a slave, the others are reserved.
const (
	MinAddr Addr = 0x08
	MaxAddr Addr = 0x77
)

// AddrError indicates an address can't be used by a slave.
type AddrError struct {
	Addr uint
}

// Error implements error.
func (e *AddrError) Error() string {
	return fmt.Sprintf("invalid slave address %#x", e.Addr)
}

// ParseAddr validates a 7-bit slave address.
func ParseAddr(v uint) (Addr, error) {
	if v < uint(MinAddr) || v > uint(MaxAddr) {
		return 0, &AddrError{Addr: v}
	}
	return Addr(v), nil
}

// Valid checks if the address is usable by a slave.
func (a Addr) Valid() bool {
	return a >= MinAddr && a <= MaxAddr
}

// Shifted returns the address byte on the wire with the R/W bit clear.
func (a Addr) Shifted() byte {
	return byte(a) << 1
}

// String implements fmt.Stringer.
func (a Addr) String() string {
	return fmt.Sprintf("0x%02x", uint8(a))
}

// ErrAlreadyInitialized indicates the adapter has been initialized.
var ErrAlreadyInitialized = errors.New("usi already initialized")

// Adapter maps "I2C slave, transmit only" onto peripheral control bits.
type Adapter struct {
	Platform Platform
	Handler  Handler

	addr Addr
	once sync.Once
}

// NewAdapter creates an Adapter delivering interrupts to h.
func NewAdapter(p Platform, h Handler) *Adapter {
	return &Adapter{Platform: p, Handler: h}
}

// Addr returns the initialized address.
func (a *Adapter) Addr() Addr {
	return a.addr
}

// Initialize configures the peripheral as an I2C slave and enables
// interrupts. It can only succeed once.
func (a *Adapter) Initialize(addr Addr) error {
	if !addr.Valid() {
		return &AddrError{Addr: uint(addr)}
	}
	err := ErrAlreadyInitialized
	a.once.Do(func() {
		a.addr = addr
		a.configure()
		err = nil
	})
	return err
}

func (a *Adapter) configure() {
	p := a.Platform
	Masked(p, func() {
		Set(p, CTL0, CTL0SWRST)
		// SDA/SCL port functions, MSB first, slave, output released.
		p.Write(CTL0, CTL0PE7|CTL0PE6|CTL0SWRST)
		p.Write(CTL1, CTL1I2C|CTL1IE|CTL1STTIE)
		p.Write(CKCTL, CKCTLCKPL)
		// flags are cleared by the handler after inspection.
		Set(p, CNT, CNTIFGCC)
		Clear(p, CTL0, CTL0SWRST)
		Clear(p, CTL1, CTL1IFG)
		p.Attach(a.Handler)
	})
	p.Enable()
}

// Masked runs fn with interrupts masked. Delivery resumes even if fn panics.
func Masked(irq Interrupts, fn func()) {
	irq.Mask()
	defer irq.Unmask()
	fn()
}

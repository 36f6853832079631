// Package usi abstracts a bit-serial universal serial interface (a plain
// shift register with a bit counter) as found on small microcontrollers.
//
// The peripheral knows nothing about I2C addressing or framing; it shifts
// the number of bits it is armed for and raises a completion flag. It also
// detects a bus start condition in I2C mode. Everything else is done by the
// interrupt handler attached through Adapter.
package usi

// Register identifies a peripheral register.
type Register int

// Registers of the peripheral.
const (
	CTL0 Register = iota
	CTL1
	CKCTL
	CNT
	SRL
	NumRegisters
)

var registerNames = [NumRegisters]string{"CTL0", "CTL1", "CKCTL", "CNT", "SRL"}

// String implements fmt.Stringer.
func (r Register) String() string {
	if r >= 0 && r < NumRegisters {
		return registerNames[r]
	}
	return "REG?"
}

// CTL0 bits.
const (
	CTL0PE7   byte = 0x80 // SDA port enable
	CTL0PE6   byte = 0x40 // SCL port enable
	CTL0PE5   byte = 0x20 // SCLK port enable, unused in I2C mode
	CTL0LSB   byte = 0x10 // LSB first
	CTL0MST   byte = 0x08 // master mode
	CTL0GE    byte = 0x04 // output latch always enabled
	CTL0OE    byte = 0x02 // data output enable
	CTL0SWRST byte = 0x01 // software reset
)

// CTL1 bits.
const (
	CTL1CKPH   byte = 0x80 // clock phase
	CTL1I2C    byte = 0x40 // I2C mode
	CTL1STTIE  byte = 0x20 // start condition interrupt enable
	CTL1IE     byte = 0x10 // counter interrupt enable
	CTL1AL     byte = 0x08 // arbitration lost
	CTL1STP    byte = 0x04 // stop condition received
	CTL1STTIFG byte = 0x02 // start condition flag
	CTL1IFG    byte = 0x01 // counter flag
)

// CKCTL bits.
const (
	CKCTLDivMask  byte = 0xe0
	CKCTLSSelMask byte = 0x1c
	CKCTLCKPL     byte = 0x02 // clock idles high
	CKCTLSWCLK    byte = 0x01
)

// CNT bits.
const (
	CNTSCLREL  byte = 0x80 // release SCL
	CNT16B     byte = 0x40 // 16-bit shift register
	CNTIFGCC   byte = 0x20 // no automatic IFG clearing
	CNTBitMask byte = 0x1f
)

// RegisterFile is the raw register access of a peripheral.
//
// Registers must only be accessed with interrupts masked or from the
// interrupt handler.
type RegisterFile interface {
	Read(Register) byte
	Write(Register, byte)
}

// Set sets bits in a register.
func Set(rf RegisterFile, reg Register, bits byte) {
	rf.Write(reg, rf.Read(reg)|bits)
}

// Clear clears bits in a register.
func Clear(rf RegisterFile, reg Register, bits byte) {
	rf.Write(reg, rf.Read(reg)&^bits)
}

// IsSet checks if any of bits is set in a register.
func IsSet(rf RegisterFile, reg Register, bits byte) bool {
	return rf.Read(reg)&bits != 0
}

package usi

// Port is the control surface an interrupt handler drives.
type Port interface {
	// StartPending reports the start condition flag.
	StartPending() bool
	// ClearStart clears the start condition flag.
	ClearStart()
	// ClearPending clears the counter completion flag.
	ClearPending()
	// SetOutput enables or releases the data line drive.
	SetOutput(enable bool)
	// Arm loads the bit counter; shifting starts on the next clocks.
	Arm(bits byte)
	// Shift reads the shift register.
	Shift() byte
	// Load writes the shift register.
	Load(byte)
}

// RegisterPort implements Port on a RegisterFile.
type RegisterPort struct {
	Regs RegisterFile
}

// NewPort creates a RegisterPort.
func NewPort(rf RegisterFile) *RegisterPort {
	return &RegisterPort{Regs: rf}
}

// StartPending implements Port.
func (p *RegisterPort) StartPending() bool {
	return IsSet(p.Regs, CTL1, CTL1STTIFG)
}

// ClearStart implements Port.
func (p *RegisterPort) ClearStart() {
	Clear(p.Regs, CTL1, CTL1STTIFG)
}

// ClearPending implements Port.
func (p *RegisterPort) ClearPending() {
	Clear(p.Regs, CTL1, CTL1IFG)
}

// SetOutput implements Port.
func (p *RegisterPort) SetOutput(enable bool) {
	if enable {
		Set(p.Regs, CTL0, CTL0OE)
	} else {
		Clear(p.Regs, CTL0, CTL0OE)
	}
}

// Arm implements Port. Control bits in CNT are preserved.
func (p *RegisterPort) Arm(bits byte) {
	p.Regs.Write(CNT, (p.Regs.Read(CNT)&^CNTBitMask)|(bits&CNTBitMask))
}

// Shift implements Port.
func (p *RegisterPort) Shift() byte {
	return p.Regs.Read(SRL)
}

// Load implements Port.
func (p *RegisterPort) Load(b byte) {
	p.Regs.Write(SRL, b)
}

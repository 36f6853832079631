package slave

import (
	"fmt"

	"github.com/robotalks/i2cslave.go/pkg/codec"
)

// Width is the length of the transmit register in bytes.
type Width int

// Supported widths.
const (
	Width2 Width = codec.Width16
	Width4 Width = codec.Width32
)

// ParseWidth validates a width in bytes.
func ParseWidth(n int) (Width, error) {
	if !codec.ValidWidth(n) {
		return 0, fmt.Errorf("width %d: %w", n, codec.ErrWidth)
	}
	return Width(n), nil
}

// Buffer is the fixed length transmit register.
//
// The producer stores into the pending slot with interrupts masked. The
// engine latches the pending slot when an address matches, so a transaction
// always serves one complete value.
type Buffer struct {
	width   Width
	pending [codec.Width32]byte
	tx      [codec.Width32]byte
}

// NewBuffer creates a zeroed Buffer.
func NewBuffer(w Width) (*Buffer, error) {
	if _, err := ParseWidth(int(w)); err != nil {
		return nil, err
	}
	return &Buffer{width: w}, nil
}

// Len returns the width in bytes.
func (b *Buffer) Len() int {
	return int(b.width)
}

// Width returns the width.
func (b *Buffer) Width() Width {
	return b.width
}

// store copies p into the pending slot. Interrupts must be masked.
func (b *Buffer) store(p []byte) {
	copy(b.pending[:b.width], p)
}

// snapshot returns a copy of the pending slot. Interrupts must be masked.
func (b *Buffer) snapshot() []byte {
	p := make([]byte, b.width)
	copy(p, b.pending[:b.width])
	return p
}

// latch makes the pending slot the one being transmitted.
func (b *Buffer) latch() {
	b.tx = b.pending
}

func (b *Buffer) at(i int) byte {
	return b.tx[i]
}

// Package master reads the transmit value of a slave the way a bus master
// does: a plain read transaction of the value width.
package master

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"

	"github.com/robotalks/i2cslave.go/pkg/codec"
)

// DefaultVRef is the input voltage at full scale of the slave converter.
const DefaultVRef = 0.6

// Reading is a decoded read.
type Reading struct {
	Raw     []byte
	Value   uint32
	Signed  int32
	Voltage float64
}

// Reader reads one slave.
type Reader struct {
	Dev   *i2c.Dev
	Width int
	VRef  float64
}

// NewReader creates a Reader on a bus.
func NewReader(b i2c.Bus, addr uint16, width int) (*Reader, error) {
	if !codec.ValidWidth(width) {
		return nil, codec.ErrWidth
	}
	return &Reader{
		Dev:   &i2c.Dev{Bus: b, Addr: addr},
		Width: width,
		VRef:  DefaultVRef,
	}, nil
}

// Read runs one read transaction.
func (r *Reader) Read() (rd Reading, err error) {
	rd.Raw = make([]byte, r.Width)
	if err = r.Dev.Tx(nil, rd.Raw); err != nil {
		return rd, fmt.Errorf("read %s: %w", r.Dev, err)
	}
	if rd.Value, err = codec.Unpack(rd.Raw); err != nil {
		return
	}
	// same width as Unpack above.
	rd.Signed, _ = codec.Signed(rd.Raw)
	rd.Voltage = Voltage(rd.Value, r.Width, r.VRef)
	return
}

// Voltage scales a value to vref at full scale of width bytes.
func Voltage(v uint32, width int, vref float64) float64 {
	full := uint64(1)<<(8*uint(width)) - 1
	return float64(v) * vref / float64(full)
}

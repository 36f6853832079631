// Package codec packs unsigned values into the transmit register and back.
//
// Values are always big-endian: the most significant byte sits at index 0
// and is the first byte shifted onto the bus.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Supported register widths in bytes.
const (
	Width16 = 2
	Width32 = 4
)

var (
	// ErrWidth indicates the buffer is neither 2 nor 4 bytes.
	ErrWidth = errors.New("width must be 2 or 4 bytes")
	// ErrOverflow indicates the value doesn't fit into the buffer.
	ErrOverflow = errors.New("value overflows width")
)

// ValidWidth checks if n is a supported register width.
func ValidWidth(n int) bool {
	return n == Width16 || n == Width32
}

// PutUint16 packs v into b[0:2].
func PutUint16(b []byte, v uint16) {
	binary.BigEndian.PutUint16(b, v)
}

// PutUint32 packs v into b[0:4].
func PutUint32(b []byte, v uint32) {
	binary.BigEndian.PutUint32(b, v)
}

// Uint16 unpacks b[0:2].
func Uint16(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}

// Uint32 unpacks b[0:4].
func Uint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// Int16 is the signed view of Uint16.
func Int16(b []byte) int16 {
	return int16(Uint16(b))
}

// Int32 is the signed view of Uint32.
func Int32(b []byte) int32 {
	return int32(Uint32(b))
}

// Pack packs v into dst, the width is len(dst).
func Pack(dst []byte, v uint32) error {
	switch len(dst) {
	case Width16:
		if v > 0xffff {
			return fmt.Errorf("pack %#x: %w", v, ErrOverflow)
		}
		PutUint16(dst, uint16(v))
	case Width32:
		PutUint32(dst, v)
	default:
		return ErrWidth
	}
	return nil
}

// Unpack decodes src, the width is len(src).
func Unpack(src []byte) (uint32, error) {
	switch len(src) {
	case Width16:
		return uint32(Uint16(src)), nil
	case Width32:
		return Uint32(src), nil
	}
	return 0, ErrWidth
}

// Signed decodes src as a two's complement value of its width.
func Signed(src []byte) (int32, error) {
	switch len(src) {
	case Width16:
		return int32(Int16(src)), nil
	case Width32:
		return Int32(src), nil
	}
	return 0, ErrWidth
}

// Package stream frames packets on a byte stream (a serial line, a TCP
// connection or a pipe) with a 4-byte little-endian length prefix.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultMaxPacketSize bounds the length prefix accepted by ReadPacket.
const DefaultMaxPacketSize = 64 * 1024

// ErrPacketTooLarge is returned when a length prefix exceeds MaxPacketSize.
type ErrPacketTooLarge struct {
	Size uint32
}

// Error implements error.
func (e *ErrPacketTooLarge) Error() string {
	return fmt.Sprintf("packet too large: %d bytes", e.Size)
}

// ReadWriter implements comm.PacketReadWriter on an io.ReadWriter.
type ReadWriter struct {
	io.ReadWriter
	MaxPacketSize uint32
}

// New creates a ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s, MaxPacketSize: DefaultMaxPacketSize}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(p.ReadWriter, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if p.MaxPacketSize > 0 && size > p.MaxPacketSize {
		return nil, &ErrPacketTooLarge{Size: size}
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(p.ReadWriter, pkt); err != nil {
		return nil, err
	}
	return pkt, nil
}

// WritePacket implements PacketWriter. Header and payload go in one write.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[4:], pkt)
	_, err := p.ReadWriter.Write(buf)
	return err
}

// Close closes the stream if it's an io.Closer.
func (p *ReadWriter) Close() error {
	if c, ok := p.ReadWriter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

package mqtt

import (
	"context"
	"io"

	"github.com/robotalks/i2cslave.go/pkg/l1"
)

// Topic suffixes under "type/id/".
const (
	TopicMeta = "meta"
	TopicCmd  = "cmd"
	TopicMsg  = "msg"
)

// ReadWriter implements PacketReadWriter on a pair of topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packets chan []byte
	done    chan struct{}
}

// NewPacketReadWriter creates a ReadWriter, topics must be set before Run.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:   q,
		packets: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

// WithTopics sets the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForHost reads what the device publishes and writes commands to it.
func (p *ReadWriter) ForHost(ref l1.DeviceRef) *ReadWriter {
	return p.WithTopics(ref.Name()+"/"+TopicMsg, ref.Name()+"/"+TopicCmd)
}

// ForDevice reads commands and publishes replies and events.
func (p *ReadWriter) ForDevice(ref l1.DeviceRef) *ReadWriter {
	return p.WithTopics(ref.Name()+"/"+TopicCmd, ref.Name()+"/"+TopicMsg)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packets:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable. It subscribes until ctx is done.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, p.receive)
	defer sub.Close()
	defer close(p.done)
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) receive(_ string, payload []byte) {
	select {
	case p.packets <- payload:
	case <-p.done:
	}
}

package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm"
)

// DefaultDiscoverTimeout is how long Discover collects meta messages.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Connector implements l1.Connector on MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	brokerURL string
}

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	if _, _, err := ClientOptionsFromURL(brokerURL); err != nil {
		return nil, err
	}
	return &Connector{DiscoverTimeout: DefaultDiscoverTimeout, brokerURL: brokerURL}, nil
}

func (c *Connector) newQueue() *Queue {
	q, _ := NewQueueFromURL(c.brokerURL)
	return q
}

// Discover implements l1.Connector by collecting the retained meta
// messages. An empty meta is a device gone.
func (c *Connector) Discover(ctx context.Context) ([]l1.DeviceInfo, error) {
	q := c.newQueue()
	found := make(chan l1.DeviceInfo, 16)
	q.Sub("+/+/"+TopicMeta, func(topic string, payload []byte) {
		if info, ok := ParseMeta(topic, payload); ok {
			select {
			case found <- info:
			case <-ctx.Done():
			}
		}
	})
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	defer q.Close()

	timeout := c.DiscoverTimeout
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	seen := make(map[l1.DeviceRef]bool)
	var infos []l1.DeviceInfo
	for {
		select {
		case info := <-found:
			if !seen[info.Ref] {
				seen[info.Ref] = true
				infos = append(infos, info)
			}
		case <-timer.C:
			return infos, nil
		case <-ctx.Done():
			return infos, ctx.Err()
		}
	}
}

// ParseMeta parses a "type/id/meta" message.
func ParseMeta(topic string, payload []byte) (info l1.DeviceInfo, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[2] != TopicMeta || len(payload) == 0 {
		return
	}
	if err := json.Unmarshal(payload, &info); err != nil {
		glog.Warningf("%s: bad meta: %v", topic, err)
	}
	info.Ref = l1.DeviceRef{Type: parts[0], ID: parts[1]}
	return info, true
}

// Connect implements l1.Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.DeviceRef) (l1.DeviceConn, error) {
	q := c.newQueue()
	conn := &DeviceConn{Queue: q}
	conn.Init(NewPacketReadWriter(q).ForHost(ref))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return conn, nil
}

// DeviceConn is an MQTT connection to a device.
type DeviceConn struct {
	comm.DeviceConn
	Queue *Queue
}

// Close disconnects from the broker.
func (c *DeviceConn) Close() error {
	return c.Queue.Close()
}

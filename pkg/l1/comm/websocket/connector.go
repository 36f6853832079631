package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/websocket"

	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm"
)

// ErrDeviceNotFound indicates the device served at the URL is another one.
var ErrDeviceNotFound = errors.New("device not found")

// Connector implements l1.Connector against a device serving websocket.
type Connector struct {
	Host string
}

// NewConnector creates a Connector from a ws://host:port URL.
func NewConnector(registryURL string) (*Connector, error) {
	u, err := url.Parse(registryURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" || u.Host == "" {
		return nil, fmt.Errorf("invalid websocket URL: %q", registryURL)
	}
	return &Connector{Host: u.Host}, nil
}

// Discover implements l1.Connector.
func (c *Connector) Discover(ctx context.Context) ([]l1.DeviceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+c.Host+InfoPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discover %s: %s", c.Host, resp.Status)
	}
	var info l1.DeviceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return []l1.DeviceInfo{info}, nil
}

// Connect implements l1.Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.DeviceRef) (l1.DeviceConn, error) {
	infos, err := c.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if infos[0].Ref != ref {
		return nil, fmt.Errorf("%s at %s: %w", ref.Name(), c.Host, ErrDeviceNotFound)
	}
	conn, err := websocket.Dial("ws://"+c.Host+StreamPath, "", "http://"+c.Host+"/")
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return &DeviceConn{DeviceConn: comm.NewDeviceConn(New(conn)), Conn: conn}, nil
}

// DeviceConn is a websocket connection to a device.
type DeviceConn struct {
	*comm.DeviceConn
	Conn *websocket.Conn
}

// Close closes the connection.
func (c *DeviceConn) Close() error {
	return c.Conn.Close()
}

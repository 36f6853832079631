// Package connector sets up the host side connection to a device node from
// flags and environment variables.
package connector

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm/websocket"
)

// Config provides common options to set up Connectors.
type Config struct {
	Ref l1.DeviceRef

	// RegistryURL is an MQTT broker (mqtt://host:port/topic-prefix/) or a
	// device node serving websocket (ws://host:port).
	RegistryURL string
}

var defaultConfig = Config{
	Ref:         l1.DeviceRef{Type: "i2cslave"},
	RegistryURL: "ws://localhost:8070",
}

func init() {
	if val := os.Getenv("I2C_TYPE"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("I2C_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("I2C_REGISTRY_URL"); val != "" {
		defaultConfig.RegistryURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "device-type", defaultConfig.Ref.Type, "Device type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "device-id", defaultConfig.Ref.ID, "Device ID to connect.")
	flag.StringVar(&defaultConfig.RegistryURL, "registry", defaultConfig.RegistryURL, "Device registry URL.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector from the registry URL scheme.
func (c *Config) NewConnector() (l1.Connector, error) {
	u, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}
	switch u.Scheme {
	case "mqtt":
		return mqtt.NewConnector(c.RegistryURL)
	case "ws":
		return websocket.NewConnector(c.RegistryURL)
	default:
		return nil, fmt.Errorf("unknown registry URL scheme: %q", u.Scheme)
	}
}

// MustNewConnector creates a Connector and exits on error.
func (c *Config) MustNewConnector() l1.Connector {
	conn, err := c.NewConnector()
	if err != nil {
		glog.Exit(err)
	}
	return conn
}

// Connect connects the configured device node. The ID may be omitted when
// the registry knows exactly one device of the type.
func (c *Config) Connect(ctx context.Context) (l1.DeviceConn, error) {
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	ref := c.Ref
	if ref.ID == "" {
		if ref, err = discoverOne(ctx, connector, ref.Type); err != nil {
			return nil, err
		}
	}
	if !ref.IsValid() {
		return nil, errors.New("device type and id must be specified")
	}
	return connector.Connect(ctx, ref)
}

// MustConnect connects and exits on error.
func (c *Config) MustConnect(ctx context.Context) l1.DeviceConn {
	conn, err := c.Connect(ctx)
	if err != nil {
		glog.Exit(err)
	}
	return conn
}

func discoverOne(ctx context.Context, connector l1.Connector, typ string) (l1.DeviceRef, error) {
	infos, err := connector.Discover(ctx)
	if err != nil {
		return l1.DeviceRef{}, err
	}
	var found []l1.DeviceRef
	for _, info := range infos {
		if info.Ref.Type == typ {
			found = append(found, info.Ref)
		}
	}
	switch len(found) {
	case 0:
		return l1.DeviceRef{}, fmt.Errorf("no device of type %q", typ)
	case 1:
		return found[0], nil
	default:
		return l1.DeviceRef{}, fmt.Errorf("%d devices of type %q, device id required", len(found), typ)
	}
}

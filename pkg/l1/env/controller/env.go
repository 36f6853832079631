// Package controller sets up the registrars of a device node from flags
// and environment variables.
package controller

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm/websocket"
	"github.com/robotalks/i2cslave.go/pkg/l1/env"
)

// DefaultType is the device type registered unless overridden.
const DefaultType = "i2cslave"

// ErrNoRegistrar is returned when neither MQTT nor websocket is configured.
var ErrNoRegistrar = errors.New("at least one registrar is required")

// Config provides options to set up a device node.
type Config struct {
	Info l1.DeviceInfo

	// MQTTBrokerURL registers with an MQTT broker,
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string
	// ListenAddr serves the websocket transport, e.g. :8070
	ListenAddr string
}

var defaultConfig = Config{
	Info: l1.DeviceInfo{Ref: l1.DeviceRef{Type: DefaultType}},
}

func init() {
	defaultConfig.MQTTBrokerURL = os.Getenv("I2C_MQTT_URL")
	defaultConfig.ListenAddr = os.Getenv("I2C_WS_LISTEN")
	if val := os.Getenv("I2C_TYPE"); val != "" {
		defaultConfig.Info.Ref.Type = val
	}
	if val := os.Getenv("I2C_ID"); val != "" {
		defaultConfig.Info.Ref.ID = val
	} else {
		defaultConfig.Info.Ref.ID = env.MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Device type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Device ID")
	flag.StringVar(&defaultConfig.Info.Meta.Description, "desc", defaultConfig.Info.Meta.Description, "Device description")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.ListenAddr, "ws", defaultConfig.ListenAddr, "Websocket listen address")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the env for a device node.
type Env struct {
	Config       *Config
	RegistryURLs []string
	Registrar    *comm.RegistrarMux
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, errors.New("device type and id must be specified")
	}
	e := &Env{Config: c, Registrar: &comm.RegistrarMux{}}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar: %w", err)
		}
		e.Registrar.Add(reg)
		e.RegistryURLs = append(e.RegistryURLs, c.MQTTBrokerURL)
	}
	if c.ListenAddr != "" {
		e.Registrar.Add(websocket.NewRegistrar(c.ListenAddr, c.Info))
		e.RegistryURLs = append(e.RegistryURLs, "ws://"+c.ListenAddr)
	}
	if len(e.Registrar.Registrars) == 0 {
		return nil, ErrNoRegistrar
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		glog.Exit(err)
	}
	return e
}

// AddToLoop adds the registrars and the fallback for unhandled commands.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Registrar, &comm.UnsupportedCommands{})
	for _, u := range e.RegistryURLs {
		glog.Infof("registered %s at %s", e.Config.Info.Ref.Name(), u)
	}
}

package device

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	env "github.com/robotalks/i2cslave.go/pkg/l1/env/controller"
	"github.com/robotalks/i2cslave.go/pkg/master"
	"github.com/robotalks/i2cslave.go/pkg/sampler"
	"github.com/robotalks/i2cslave.go/pkg/sim/adc"
	"github.com/robotalks/i2cslave.go/pkg/sim/bus"
	"github.com/robotalks/i2cslave.go/pkg/slave"
	"github.com/robotalks/i2cslave.go/pkg/usi"
)

// Config defines a simulated device node: a slave fed by a simulated
// converter, and a master polling it on the same bus.
type Config struct {
	Bus          string
	Addr         uint
	Width        int
	Level        float64 // input voltage
	Noise        uint
	Window       int
	PollInterval time.Duration
	Signed       bool
}

var defaultConfig = Config{
	Bus:          "SIM0",
	Addr:         uint(usi.DefaultAddr),
	Width:        int(slave.Width2),
	Level:        0.3,
	Noise:        64,
	Window:       sampler.DefaultWindow,
	PollInterval: master.DefaultPollInterval,
}

func init() {
	if val := os.Getenv("I2C_SLAVE_ADDR"); val != "" {
		if addr, err := strconv.ParseUint(val, 0, 8); err == nil {
			defaultConfig.Addr = uint(addr)
		}
	}
	if val := os.Getenv("I2C_BUS"); val != "" {
		defaultConfig.Bus = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Bus, "bus", defaultConfig.Bus, "Name of the simulated bus.")
	flag.UintVar(&defaultConfig.Addr, "addr", defaultConfig.Addr, "Slave address.")
	flag.IntVar(&defaultConfig.Width, "width", defaultConfig.Width, "Transmit value width in bytes, 2 or 4.")
	flag.Float64Var(&defaultConfig.Level, "level", defaultConfig.Level, "Simulated input voltage (V).")
	flag.UintVar(&defaultConfig.Noise, "noise", defaultConfig.Noise, "Simulated conversion noise (LSB).")
	flag.IntVar(&defaultConfig.Window, "window", defaultConfig.Window, "Samples per median, odd.")
	flag.DurationVar(&defaultConfig.PollInterval, "poll", defaultConfig.PollInterval, "Master poll interval.")
	flag.BoolVar(&defaultConfig.Signed, "signed", defaultConfig.Signed, "Master prints signed values.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates the default configuration.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Node is an assembled simulated device node.
type Node struct {
	Bus        *bus.Bus
	Device     *slave.Device
	Controller *Controller
	Source     *adc.Source
	Producer   *sampler.Producer
	Poller     *master.Poller
}

// NewNode builds the node and initializes the slave. e may be nil when
// the node is not registered.
func (c *Config) NewNode(e *env.Env) (*Node, error) {
	addr, err := usi.ParseAddr(c.Addr)
	if err != nil {
		return nil, err
	}
	width, err := slave.ParseWidth(c.Width)
	if err != nil {
		return nil, err
	}
	if c.Noise > adc.FullScale {
		return nil, fmt.Errorf("noise %d out of range", c.Noise)
	}

	n := &Node{Bus: bus.New(c.Bus)}
	if n.Device, err = slave.New(n.Bus, slave.Config{Addr: addr, Width: width}); err != nil {
		return nil, err
	}
	n.Controller = New(n.Device)
	n.Controller.Scanner = n.Bus
	if err = n.Device.Initialize(); err != nil {
		return nil, err
	}

	n.Source = adc.New(adc.FromVoltage(c.Level), uint16(c.Noise), time.Now().UnixNano())
	if n.Producer, err = sampler.NewProducer(n.Source, n.Device, c.Window); err != nil {
		return nil, err
	}
	n.Controller.Producer = n.Producer

	reader, err := master.NewReader(n.Bus, uint16(addr), int(width))
	if err != nil {
		return nil, err
	}
	n.Poller = master.NewPoller(reader, c.PollInterval)
	n.Poller.Signed = c.Signed
	if e != nil {
		n.Controller.Registrar = e.Registrar
		n.Poller.Registrar = e.Registrar
	}
	return n, nil
}

// AddToLoop implements LoopAdder.
func (n *Node) AddToLoop(loop *fx.Loop) {
	loop.Add(n.Producer, n.Controller, n.Poller)
}

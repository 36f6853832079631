package main

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/robotalks/i2cslave.go/pkg/master"
	"github.com/robotalks/i2cslave.go/pkg/sim/adc"
	"github.com/robotalks/i2cslave.go/pkg/sim/bus"
	"github.com/robotalks/i2cslave.go/pkg/slave"
	"github.com/robotalks/i2cslave.go/pkg/usi"
)

// SimBus is the bus name selecting a local simulated slave.
const SimBus = "sim"

var (
	busName  = ""
	addr     = uint(usi.DefaultAddr)
	width    = int(slave.Width2)
	count    = 1
	interval = time.Second
	signed   bool
	speed    physic.Frequency
	vref     = master.DefaultVRef
	simLevel = 0.3
)

func init() {
	if val := os.Getenv("I2C_BUS"); val != "" {
		busName = val
	}
	if val := os.Getenv("I2C_SLAVE_ADDR"); val != "" {
		if v, err := strconv.ParseUint(val, 0, 8); err == nil {
			addr = uint(v)
		}
	}
	flag.StringVar(&busName, "bus", busName, `I2C bus name or number, "sim" for a simulated slave, empty for the first one.`)
	flag.UintVar(&addr, "addr", addr, "Slave address.")
	flag.IntVar(&width, "width", width, "Value width in bytes, 2 or 4.")
	flag.IntVar(&count, "n", count, "Number of reads, 0 reads forever.")
	flag.DurationVar(&interval, "interval", interval, "Interval between reads.")
	flag.BoolVar(&signed, "signed", signed, "Print signed values.")
	flag.Var(&speed, "speed", "Bus speed, e.g. 400kHz.")
	flag.Float64Var(&vref, "vref", vref, "Voltage at full scale.")
	flag.Float64Var(&simLevel, "sim-level", simLevel, "Input voltage of the simulated slave (V).")
}

func openBus() (i2c.BusCloser, error) {
	if busName != SimBus {
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		return i2creg.Open(busName)
	}
	b := bus.New("SIM")
	dev, err := slave.New(b, slave.Config{Addr: usi.Addr(addr), Width: slave.Width(width)})
	if err != nil {
		return nil, err
	}
	if err := dev.Initialize(); err != nil {
		return nil, err
	}
	src := adc.New(adc.FromVoltage(simLevel), 0, 0)
	v, _ := src.Sample()
	if err := dev.SetTransmitValue(uint32(v)); err != nil {
		return nil, err
	}
	if err := b.Register(); err != nil {
		return nil, err
	}
	return i2creg.Open(b.Name)
}

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()

	b, err := openBus()
	if err != nil {
		glog.Exit(err)
	}
	defer b.Close()
	if speed != 0 {
		if err := b.SetSpeed(speed); err != nil {
			glog.Exit(err)
		}
	}
	r, err := master.NewReader(b, uint16(addr), width)
	if err != nil {
		glog.Exit(err)
	}
	r.VRef = vref
	for n := 0; count == 0 || n < count; n++ {
		if n > 0 {
			time.Sleep(interval)
		}
		rd, err := r.Read()
		if err != nil {
			glog.Exit(err)
		}
		if signed {
			glog.Infof("ADC-Value: %d -> Voltage: %1.3f V", rd.Signed, rd.Voltage)
		} else {
			glog.Infof("ADC-Value: %d -> Voltage: %1.3f V", rd.Value, rd.Voltage)
		}
	}
}

package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/i2cslave.go/pkg/device"
	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	env "github.com/robotalks/i2cslave.go/pkg/l1/env/controller"
)

var loopInterval = 10 * time.Millisecond

func init() {
	env.SetupFlags()
	device.SetupFlags()
	flag.DurationVar(&loopInterval, "loop-interval", loopInterval, "Loop iteration interval, one conversion per iteration.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.NewConfig()
	if conf.Info.Meta.Description == "" {
		conf.Info.Meta.Description = "Simulation: transmit-only I2C slave"
	}
	e := conf.MustNewEnv()
	node, err := device.NewConfig().NewNode(e)
	if err != nil {
		glog.Exit(err)
	}
	if err := node.Bus.Register(); err != nil {
		glog.Exit(err)
	}
	glog.Infof("slave %s on %s", node.Device.Engine.Addr(), node.Bus)

	loop := fx.NewLoop().Add(e, node)
	loop.Interval = loopInterval
	if err := fx.NewRunner().HandleSignals().Go(loop).Wait(); err != nil {
		glog.Exit(err)
	}
}

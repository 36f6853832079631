// Package i2c adds the slave device commands to the shell.
package i2c

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/i2cslave.go/pkg/cli/sh"
	"github.com/robotalks/i2cslave.go/pkg/l1/msgs"
)

// DefaultWatchTime is how long i2c.watch prints events.
const DefaultWatchTime = 5 * time.Second

var (
	// ReadCmd reads the published transmit value.
	ReadCmd = ishell.Cmd{
		Name:    "i2c.read",
		Aliases: []string{"ir"},
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.ValueQuery{})
		}),
	}

	// SetCmd overrides the transmit value, or releases it to the producer.
	SetCmd = ishell.Cmd{
		Name:    "i2c.set",
		Aliases: []string{"is"},
		Help:    "VALUE|release",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			msg, err := parseSet(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg)
		}),
	}

	// StatusCmd prints the slave state and counters.
	StatusCmd = ishell.Cmd{
		Name:    "i2c.status",
		Aliases: []string{"ist"},
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.StatusQuery{})
		}),
	}

	// ScanCmd scans the bus of the device.
	ScanCmd = ishell.Cmd{
		Name:    "i2c.scan",
		Aliases: []string{"isc"},
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			reply, err := sh.ShellFrom(c).Do(&msgs.ScanQuery{})
			if err != nil {
				c.Err(err)
				return
			}
			if sh.ShellFrom(c).OutputJSON {
				out, _ := sh.FormatMsg(reply, true)
				c.Println(out)
				return
			}
			scan, ok := reply.(*msgs.ScanReply)
			if !ok {
				c.Err(fmt.Errorf("unexpected reply %T", reply))
				return
			}
			if len(scan.Addrs) == 0 {
				c.Println("No devices found")
			}
			for _, addr := range scan.Addrs {
				c.Printf("%#02x\n", addr)
			}
		}),
	}

	// WatchCmd prints events from the device.
	WatchCmd = ishell.Cmd{
		Name:    "i2c.watch",
		Aliases: []string{"iw"},
		Help:    "[SECONDS]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			d := DefaultWatchTime
			if len(c.Args) > 0 {
				secs, err := strconv.ParseFloat(c.Args[0], 64)
				if err != nil || secs <= 0 {
					c.Err(fmt.Errorf("invalid SECONDS: %q", c.Args[0]))
					return
				}
				d = time.Duration(secs * float64(time.Second))
			}
			s := sh.ShellFrom(c)
			events, stop := s.Conn.Watch()
			defer stop()
			timeout := time.After(d)
			for {
				select {
				case ev := <-events:
					out, err := sh.FormatMsg(ev, s.OutputJSON)
					if err != nil {
						c.Err(err)
						return
					}
					c.Println(out)
				case <-timeout:
					return
				}
			}
		}),
	}
)

func parseSet(args []string) (*msgs.ValueSet, error) {
	if len(args) < 1 {
		return nil, errors.New("VALUE required")
	}
	if args[0] == "release" {
		return &msgs.ValueSet{Release: true}, nil
	}
	v, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid VALUE: %w", err)
	}
	return &msgs.ValueSet{Value: uint32(v)}, nil
}

func init() {
	sh.AddCmds(&ReadCmd, &SetCmd, &StatusCmd, &ScanCmd, &WatchCmd)
}

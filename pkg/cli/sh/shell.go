// Package sh is an interactive shell talking to device nodes. Command
// providers register their commands with AddCmds from init.
package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	"github.com/robotalks/i2cslave.go/pkg/l1"
	env "github.com/robotalks/i2cslave.go/pkg/l1/env/connector"
	"github.com/robotalks/i2cslave.go/pkg/l1/msgs"
)

// DefaultCommandTimeout is how long a command waits for its reply.
const DefaultCommandTimeout = 2 * time.Second

var (
	// ErrNotConnected is reported by commands run without a connection.
	ErrNotConnected = errors.New("not connected")
	// ErrCommandTimeout is reported when no reply arrives in time.
	ErrCommandTimeout = errors.New("command timeout")
)

// Shell is an ishell with a device connection.
type Shell struct {
	Interactive    bool
	OutputJSON     bool
	AutoConnect    bool
	CommandTimeout time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is a device connection with the loop receiving its replies and
// events.
type Conn struct {
	Ref    l1.DeviceRef
	Loop   *fx.Loop
	Device l1.DeviceConn

	cancel func()

	lock     sync.Mutex
	watchers map[chan fx.Message]struct{}
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Run the command in arguments only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print replies in JSON.")
}

// AddCmds registers commands, called from init of command providers.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a Shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive:    !evalOnly,
		OutputJSON:     outputJSON,
		CommandTimeout: DefaultCommandTimeout,
		Shell:          ishell.New(),
		Config:         conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets the Shell from an ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps a command func requiring a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// FormatInfo formats DeviceInfo for display.
func FormatInfo(info l1.DeviceInfo) string {
	if info.Meta.Description == "" {
		return info.Ref.Name()
	}
	return info.Ref.Name() + ": " + info.Meta.Description
}

// FormatMsg formats a message as "TypeName {fields}", or JSON.
func FormatMsg(msg fx.Message, asJSON bool) (string, error) {
	sm, ok := msg.(msgs.SerializableMessage)
	if !ok {
		return fmt.Sprintf("%#v", msg), nil
	}
	if asJSON {
		out, err := json.Marshal(sm.Serializable())
		return string(out), err
	}
	return fmt.Sprintf("%s {%s}", reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), sm.Serializable().String()), nil
}

// Do runs a command and waits for its reply.
func (s *Shell) Do(msg fx.Message) (fx.Message, error) {
	if s.Conn == nil {
		return nil, ErrNotConnected
	}
	timeout := s.CommandTimeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	select {
	case res := <-s.Conn.Device.DoCommand(msg).ResultChan():
		return res.Msg, res.Err
	case <-time.After(timeout):
		return nil, ErrCommandTimeout
	}
}

// DoCommand runs a command and prints its reply.
func DoCommand(c *ishell.Context, msg fx.Message) (fx.Message, error) {
	s := ShellFrom(c)
	reply, err := s.Do(msg)
	if err != nil {
		c.Err(err)
		return nil, err
	}
	if _, ok := reply.(*msgs.CommandOK); ok && !s.OutputJSON {
		c.Println("OK")
		return reply, nil
	}
	out, err := FormatMsg(reply, s.OutputJSON)
	if err != nil {
		c.Err(err)
		return reply, err
	}
	c.Println(out)
	return reply, nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Discover lists the devices accepted by filter.
func (s *Shell) Discover(filter func(l1.DeviceInfo) bool) ([]l1.DeviceInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	infos, err := connector.Discover(context.Background())
	if err != nil || filter == nil {
		return infos, err
	}
	found := infos[:0]
	for _, info := range infos {
		if filter(info) {
			found = append(found, info)
		}
	}
	return found, nil
}

// SelectDevice discovers devices and asks for a choice when more than one
// is found. It returns nil when nothing is found.
func (s *Shell) SelectDevice(filter func(l1.DeviceInfo) bool) (*l1.DeviceInfo, error) {
	infos, err := s.Discover(filter)
	if err != nil || len(infos) == 0 {
		return nil, err
	}
	if len(infos) == 1 {
		return &infos[0], nil
	}
	if !s.Interactive {
		return nil, fmt.Errorf("%d devices discovered, device id required", len(infos))
	}
	items := make([]string, len(infos))
	for n, info := range infos {
		items[n] = FormatInfo(info)
	}
	return &infos[s.Shell.MultiChoice(items, "Which one to connect?")], nil
}

// Connect connects a device, replacing the current connection.
func (s *Shell) Connect(ref l1.DeviceRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	dev, err := connector.Connect(ctx, ref)
	if err != nil {
		cancel()
		return err
	}
	conn := &Conn{Ref: ref, Loop: fx.NewLoop(), Device: dev, cancel: cancel}
	if adder, ok := dev.(fx.LoopAdder); ok {
		conn.Loop.Add(adder)
	}
	conn.Loop.AddController(fx.PrLvReport, fx.ControlFunc(conn.dispatchEvents))
	s.Disconnect()
	s.Conn = conn
	go conn.Loop.Run(ctx)
	s.Shell.SetPrompt(ref.Name() + " > ")
	return nil
}

// Disconnect closes the current connection.
func (s *Shell) Disconnect() {
	if s.Conn == nil {
		return
	}
	s.Conn.cancel()
	if closer, ok := s.Conn.Device.(interface{ Close() error }); ok {
		closer.Close()
	}
	s.Conn = nil
	s.Shell.SetPrompt(unconnectedPrompt)
}

// Watch receives the events from the device until stop is called.
func (c *Conn) Watch() (events <-chan fx.Message, stop func()) {
	ch := make(chan fx.Message, 16)
	c.lock.Lock()
	if c.watchers == nil {
		c.watchers = make(map[chan fx.Message]struct{})
	}
	c.watchers[ch] = struct{}{}
	c.lock.Unlock()
	return ch, func() {
		c.lock.Lock()
		delete(c.watchers, ch)
		c.lock.Unlock()
	}
}

func (c *Conn) dispatchEvents(cc fx.ControlContext) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	cc.Messages().Take(func(msg fx.Message) bool {
		for ch := range c.watchers {
			select {
			case ch <- msg:
			default:
				glog.V(2).Info("watcher full, event dropped")
			}
		}
		return true
	})
	return nil
}

// Run processes args as a command, or runs the interactive shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Ref.IsValid() {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Ref.Name())
		}
		if err := s.Connect(s.Config.Ref); err != nil {
			glog.Exitf("connect %s: %v", s.Config.Ref.Name(), err)
		}
	}
	switch {
	case len(args) > 0:
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
	case s.Interactive:
		s.Shell.Run()
	default:
		glog.Exit("command expected")
	}
}

var (
	// DiscoverCmd lists devices.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "[TYPE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var filter func(l1.DeviceInfo) bool
			if len(c.Args) > 0 {
				filter = func(info l1.DeviceInfo) bool { return info.Ref.Type == c.Args[0] }
			}
			infos, err := s.Discover(filter)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if infos == nil {
					infos = []l1.DeviceInfo{}
				}
				out, err := json.Marshal(infos)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infos) == 0 {
				c.Println("No devices found")
			}
			for _, info := range infos {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[TYPE [ID]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref l1.DeviceRef
			if len(c.Args) >= 2 {
				ref.Type, ref.ID = c.Args[0], c.Args[1]
			} else {
				var filter func(l1.DeviceInfo) bool
				if len(c.Args) == 1 {
					filter = func(info l1.DeviceInfo) bool { return info.Ref.Type == c.Args[0] }
				}
				info, err := s.SelectDevice(filter)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(errors.New("no device discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the connection.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main runs the shell with flags parsed, in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}

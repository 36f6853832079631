package master

import (
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/msgs"
)

// DefaultPollInterval is the interval between reads.
const DefaultPollInterval = time.Second

// Poller is a controller reading the slave every Interval. Readings are
// logged, posted into the loop as SampleEvent and sent through Registrar.
type Poller struct {
	Reader    *Reader
	Interval  time.Duration
	Signed    bool
	Registrar l1.Registrar

	lastPoll time.Time

	lock   sync.Mutex
	last   Reading
	reads  uint64
	errors uint64
}

// NewPoller creates a Poller.
func NewPoller(r *Reader, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{Reader: r, Interval: interval}
}

// Control implements Controller. Read failures are counted, they do not
// stop the loop.
func (p *Poller) Control(cc fx.ControlContext) error {
	now := cc.Time()
	if !p.lastPoll.IsZero() && now.Sub(p.lastPoll) < p.Interval {
		return nil
	}
	p.lastPoll = now

	rd, err := p.Reader.Read()
	p.lock.Lock()
	if err != nil {
		p.errors++
	} else {
		p.last, p.reads = rd, p.reads+1
	}
	p.lock.Unlock()
	if err != nil {
		glog.Warning(err)
		return nil
	}

	if p.Signed {
		glog.Infof("ADC-Value: %d -> Voltage: %1.3f V", rd.Signed, rd.Voltage)
	} else {
		glog.Infof("ADC-Value: %d -> Voltage: %1.3f V", rd.Value, rd.Voltage)
	}
	ev := &msgs.SampleEvent{
		Addr:    uint32(p.Reader.Dev.Addr),
		Raw:     rd.Raw,
		Value:   rd.Value,
		Signed:  rd.Signed,
		Voltage: rd.Voltage,
	}
	cc.PostMessage(ev)
	if p.Registrar != nil {
		if err := p.Registrar.SendEvent(cc.Context(), ev); err != nil {
			glog.Warningf("send sample: %v", err)
		}
	}
	return nil
}

// Last returns the last reading and the counts of reads and failures.
func (p *Poller) Last() (rd Reading, reads, errors uint64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.last, p.reads, p.errors
}

// AddToLoop implements LoopAdder.
func (p *Poller) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvReport, p)
}

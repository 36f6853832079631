package sampler

import (
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
)

// Source produces one conversion result per call.
type Source interface {
	Sample() (uint16, error)
}

// Publisher takes the filtered value, a slave.Device in practice.
type Publisher interface {
	SetTransmitValue(uint32) error
}

// Published is posted into the loop each time a median is published.
type Published struct {
	Value uint16
}

// NewMessage implements Message.
func (m *Published) NewMessage() fx.Message { return &Published{} }

// Producer takes one sample per loop iteration and publishes the median of
// each full window. While held, windows are still filtered but nothing is
// published.
type Producer struct {
	Source    Source
	Publisher Publisher

	window []uint16
	n      int

	lock      sync.Mutex
	held      bool
	last      uint16
	published uint64
}

// NewProducer creates a Producer, window 0 means DefaultWindow.
func NewProducer(src Source, pub Publisher, window int) (*Producer, error) {
	if window == 0 {
		window = DefaultWindow
	}
	if window < 0 || window%2 == 0 {
		return nil, ErrWindow
	}
	return &Producer{Source: src, Publisher: pub, window: make([]uint16, window)}, nil
}

// Hold stops or resumes publishing.
func (p *Producer) Hold(held bool) {
	p.lock.Lock()
	p.held = held
	p.lock.Unlock()
}

// Held tells if publishing is stopped.
func (p *Producer) Held() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.held
}

// Last returns the last median and how many were published.
func (p *Producer) Last() (uint16, uint64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.last, p.published
}

// Control implements Controller.
func (p *Producer) Control(cc fx.ControlContext) error {
	v, err := p.Source.Sample()
	if err != nil {
		return err
	}
	p.window[p.n] = v
	if p.n++; p.n < len(p.window) {
		return nil
	}
	p.n = 0
	// NewProducer only accepts odd windows.
	median, _ := Median(p.window)

	p.lock.Lock()
	defer p.lock.Unlock()
	p.last = median
	if p.held {
		return nil
	}
	if err := p.Publisher.SetTransmitValue(uint32(median)); err != nil {
		return err
	}
	p.published++
	glog.V(3).Infof("published %d", median)
	cc.PostMessage(&Published{Value: median})
	return nil
}

// AddToLoop implements LoopAdder.
func (p *Producer) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvSense, p)
}

package framework

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the iteration interval of a Loop.
const DefaultInterval = 100 * time.Millisecond

// Loop runs controllers by priority level on a fixed interval, or earlier
// when triggered, and runs background Runnables alongside.
type Loop struct {
	Interval time.Duration

	levels  [PriorityLevels]level
	runners []Runnable

	lock   sync.Mutex
	queue  []Message
	wakeCh chan struct{}

	iterations uint64
}

// LoopAdder adds its controllers and runnables to a loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type level struct {
	controllers []Controller

	lock     sync.Mutex
	deferred []Controller
}

type ctxKey struct{}

// LoopCtlFrom gets the LoopControl from a context passed to a Runnable
// or a Controller.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(ctxKey{}).(LoopControl)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{
		Interval: DefaultInterval,
		wakeCh:   make(chan struct{}, 1),
	}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController adds controllers at a priority level. A controller which
// is also a Runnable is run in background as well.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	lv := &l.levels[priorityLevel]
	for _, ctl := range ctls {
		lv.controllers = append(lv.controllers, ctl)
		if r, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, r)
		}
	}
	return l
}

// AddRunnable adds background Runnables.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Iterations returns the number of iterations run.
func (l *Loop) Iterations() uint64 {
	return atomic.LoadUint64(&l.iterations)
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeCh == nil {
		l.wakeCh = make(chan struct{}, 1)
	}
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	runner := NewRunnerWith(context.WithValue(ctx, ctxKey{}, LoopControl(l)))
	runner.Go(l.runners...)
	defer func() {
		if err := runner.Wait(); err != nil {
			glog.Errorf("loop runners: %v", err)
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-l.wakeCh:
		}
		l.iterate(ctx)
	}
}

// RunOrFail runs the loop in main.
func (l *Loop) RunOrFail() {
	if err := l.Run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.queue = append(l.queue, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeCh <- struct{}{}:
	default:
	}
}

// Defer implements LoopControl.
func (l *Loop) Defer(priorityLevel int, ctls ...Controller) {
	lv := &l.levels[priorityLevel]
	lv.lock.Lock()
	lv.deferred = append(lv.deferred, ctls...)
	lv.lock.Unlock()
}

func (l *Loop) iterate(ctx context.Context) {
	it := &iteration{Loop: l, time: time.Now()}
	l.lock.Lock()
	it.msgs, l.queue = l.queue, nil
	l.lock.Unlock()
	it.ctx = context.WithValue(ctx, ctxKey{}, LoopControl(l))
	for n := range l.levels {
		it.priorityLevel = n
		l.levels[n].run(it)
	}
	if cnt := it.Len(); cnt > 0 {
		glog.V(4).Infof("%d messages not consumed", cnt)
	}
	atomic.AddUint64(&l.iterations, 1)
}

func (lv *level) run(it *iteration) {
	invoke(it, lv.controllers)
	lv.lock.Lock()
	ctls := lv.deferred
	lv.deferred = nil
	lv.lock.Unlock()
	invoke(it, ctls)
}

func invoke(it *iteration, ctls []Controller) {
	for _, ctl := range ctls {
		if err := ctl.Control(it); err != nil {
			glog.Errorf("controller at level %d: %v", it.priorityLevel, err)
		}
	}
}

type iteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	priorityLevel int
	msgs          []Message
}

func (it *iteration) Context() context.Context { return it.ctx }
func (it *iteration) Time() time.Time          { return it.time }
func (it *iteration) PriorityLevel() int       { return it.priorityLevel }
func (it *iteration) Messages() MessageStore   { return it }
func (it *iteration) Len() int                 { return len(it.msgs) }

func (it *iteration) Take(fn func(Message) bool) {
	remains := it.msgs[:0]
	for _, msg := range it.msgs {
		if !fn(msg) {
			remains = append(remains, msg)
		}
	}
	for n := len(remains); n < len(it.msgs); n++ {
		it.msgs[n] = nil
	}
	it.msgs = remains
}

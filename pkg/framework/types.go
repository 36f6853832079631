package framework

import (
	"context"
	"time"
)

// Named is implemented by things with a name.
type Named interface {
	Name() string
}

// Runnable runs in background until the context is done or it fails.
type Runnable interface {
	Run(context.Context) error
}

// Message is consumed by controllers in the loop.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// Controller is invoked once per loop iteration at its priority level.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// TimeSource provides the time of the current iteration.
type TimeSource interface {
	Time() time.Time
}

// ControlContext is the view of one loop iteration.
type ControlContext interface {
	TimeSource
	// Context is the context of the loop.
	Context() context.Context
	// PriorityLevel is the level being run.
	PriorityLevel() int
	// Messages are the messages collected when the iteration started.
	Messages() MessageStore

	LoopControl
}

// PriorityLevels is the number of priority levels, 0 runs first.
const PriorityLevels int = 8

// Priority levels.
const (
	PrLvTop int = 0
	// PrLvSense is for producers acquiring data.
	PrLvSense int = 1
	// PrLvControl is for controllers processing commands.
	PrLvControl int = 3
	// PrLvReport is for reporting state changes.
	PrLvReport int = 5
	// PrLvIdle runs last, it handles left-overs.
	PrLvIdle int = PriorityLevels - 1
)

// LoopControl is the access to a running loop.
type LoopControl interface {
	// PostMessage enqueues a message for the next iteration.
	PostMessage(Message)
	// TriggerNext runs the next iteration without waiting for the interval.
	TriggerNext()
	// Defer runs the controllers once after the regular ones at the
	// priority level, in the current iteration if that level is not done.
	Defer(priorityLevel int, ctls ...Controller)
}

// MessageStore is the list of messages of an iteration.
type MessageStore interface {
	// Take calls fn on each message in order, fn returns true when the
	// message is consumed and must not be seen by later controllers.
	Take(fn func(Message) bool)
	// Len returns the number of messages not yet consumed.
	Len() int
}

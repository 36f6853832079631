// Package l1 defines how a device node (the L1 side) and the hosts talking
// to it (the L2 side) exchange commands and events.
package l1

import (
	"context"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
)

// Registrar publishes a device node to a registry and delivers the
// commands sent to it into the loop as CommandMsg.
type Registrar interface {
	// SendEvent broadcasts an event to connected hosts.
	SendEvent(context.Context, fx.Message) error
}

// Command is a received command waiting for its reply.
type Command interface {
	Msg() fx.Message
	// Done sends the reply.
	Done(fx.Message) error
}

// CommandMsg carries a Command through the loop.
type CommandMsg struct {
	Command Command
}

// NewMessage implements Message.
func (m *CommandMsg) NewMessage() fx.Message { return &CommandMsg{} }

// DeviceRef identifies a device node.
type DeviceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Name is the registry name "type/id".
func (r DeviceRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid checks both parts are set.
func (r DeviceRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// DeviceMeta describes a device node.
type DeviceMeta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// DeviceInfo is what a registry knows about a device node.
type DeviceInfo struct {
	Ref  DeviceRef  `json:"ref"`
	Meta DeviceMeta `json:"meta"`
}

// Connector is used by hosts to find and connect device nodes.
type Connector interface {
	Discover(context.Context) ([]DeviceInfo, error)
	Connect(context.Context, DeviceRef) (DeviceConn, error)
}

// DeviceConn is a host connection to a device node.
type DeviceConn interface {
	DoCommand(fx.Message) CommandFuture
}

// Result is the reply to a command.
type Result struct {
	Msg fx.Message
	Err error
}

// CommandFuture delivers exactly one Result.
type CommandFuture interface {
	ResultChan() <-chan Result
}

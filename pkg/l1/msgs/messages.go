package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
)

// Type ID groups.
const (
	GroupCommand uint32 = 0x00000000
	GroupI2C     uint32 = 0x00030000
	GroupCustom  uint32 = 0x7f000000 // base group id for custom messages.
)

// Type IDs.
const (
	CommandOKTypeID        uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID       uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	ValueQueryTypeID       uint32 = GroupI2C | 0x0000
	ValueReplyTypeID       uint32 = ValueQueryTypeID | TypeIDMaskReply
	ValueSetTypeID         uint32 = GroupI2C | 0x0001
	StatusQueryTypeID      uint32 = GroupI2C | 0x0002
	StatusTypeID           uint32 = StatusQueryTypeID | TypeIDMaskReply
	ScanQueryTypeID        uint32 = GroupI2C | 0x0003
	ScanReplyTypeID        uint32 = ScanQueryTypeID | TypeIDMaskReply
	SampleEventTypeID      uint32 = GroupI2C | TypeIDKindEvent | 0x0000
	TransactionEventTypeID uint32 = GroupI2C | TypeIDKindEvent | 0x0001
)

func init() {
	Register(
		(*CommandOK)(nil),
		(*CommandErr)(nil),
		(*ValueQuery)(nil),
		(*ValueReply)(nil),
		(*ValueSet)(nil),
		(*StatusQuery)(nil),
		(*Status)(nil),
		(*ScanQuery)(nil),
		(*ScanReply)(nil),
		(*SampleEvent)(nil),
		(*TransactionEvent)(nil),
	)
}

// CommandOK is the generic reply of a successful command.
type CommandOK struct {
}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() fx.Message { return &CommandOK{} }

// TypeID implements SerializableMessage.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// Serializable implements SerializableMessage.
func (m *CommandOK) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandOK) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandOK) Reset() { *m = CommandOK{} }

// String implements proto.Message.
func (m *CommandOK) String() string { return proto.CompactTextString(m) }

// CommandErr is the generic reply of a failed command.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return &CommandErr{Message: err.Error()}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() fx.Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// ValueQuery reads the published transmit value.
type ValueQuery struct {
}

// NewMessage implements Message.
func (m *ValueQuery) NewMessage() fx.Message { return &ValueQuery{} }

// TypeID implements SerializableMessage.
func (m *ValueQuery) TypeID() uint32 { return ValueQueryTypeID }

// Serializable implements SerializableMessage.
func (m *ValueQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ValueQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ValueQuery) Reset() { *m = ValueQuery{} }

// String implements proto.Message.
func (m *ValueQuery) String() string { return proto.CompactTextString(m) }

// ValueReply is the reply of ValueQuery.
type ValueReply struct {
	Value uint32 `protobuf:"varint,1,opt,name=value,proto3" json:"value"`
	Width uint32 `protobuf:"varint,2,opt,name=width,proto3" json:"width"`
	Raw   []byte `protobuf:"bytes,3,opt,name=raw,proto3" json:"raw,omitempty"`
}

// NewMessage implements Message.
func (m *ValueReply) NewMessage() fx.Message { return &ValueReply{} }

// TypeID implements SerializableMessage.
func (m *ValueReply) TypeID() uint32 { return ValueReplyTypeID }

// Serializable implements SerializableMessage.
func (m *ValueReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ValueReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ValueReply) Reset() { *m = ValueReply{} }

// String implements proto.Message.
func (m *ValueReply) String() string { return proto.CompactTextString(m) }

// ValueSet publishes a transmit value, overriding the producer until
// Release is set.
type ValueSet struct {
	Value   uint32 `protobuf:"varint,1,opt,name=value,proto3" json:"value"`
	Release bool   `protobuf:"varint,2,opt,name=release,proto3" json:"release,omitempty"`
}

// NewMessage implements Message.
func (m *ValueSet) NewMessage() fx.Message { return &ValueSet{} }

// TypeID implements SerializableMessage.
func (m *ValueSet) TypeID() uint32 { return ValueSetTypeID }

// Serializable implements SerializableMessage.
func (m *ValueSet) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ValueSet) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ValueSet) Reset() { *m = ValueSet{} }

// String implements proto.Message.
func (m *ValueSet) String() string { return proto.CompactTextString(m) }

// StatusQuery reads the slave status.
type StatusQuery struct {
}

// NewMessage implements Message.
func (m *StatusQuery) NewMessage() fx.Message { return &StatusQuery{} }

// TypeID implements SerializableMessage.
func (m *StatusQuery) TypeID() uint32 { return StatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *StatusQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *StatusQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatusQuery) Reset() { *m = StatusQuery{} }

// String implements proto.Message.
func (m *StatusQuery) String() string { return proto.CompactTextString(m) }

// Status is the reply of StatusQuery.
type Status struct {
	Addr         uint32 `protobuf:"varint,1,opt,name=addr,proto3" json:"addr"`
	Width        uint32 `protobuf:"varint,2,opt,name=width,proto3" json:"width"`
	State        string `protobuf:"bytes,3,opt,name=state,proto3" json:"state"`
	Cursor       uint32 `protobuf:"varint,4,opt,name=cursor,proto3" json:"cursor"`
	Value        uint32 `protobuf:"varint,5,opt,name=value,proto3" json:"value"`
	Overridden   bool   `protobuf:"varint,6,opt,name=overridden,proto3" json:"overridden,omitempty"`
	Transactions uint64 `protobuf:"varint,7,opt,name=transactions,proto3" json:"transactions"`
	Completed    uint64 `protobuf:"varint,8,opt,name=completed,proto3" json:"completed"`
	Nacked       uint64 `protobuf:"varint,9,opt,name=nacked,proto3" json:"nacked"`
	Mismatched   uint64 `protobuf:"varint,10,opt,name=mismatched,proto3" json:"mismatched"`
	Preempted    uint64 `protobuf:"varint,11,opt,name=preempted,proto3" json:"preempted"`
	BytesSent    uint64 `protobuf:"varint,12,opt,name=bytes_sent,proto3" json:"bytes_sent"`
}

// NewMessage implements Message.
func (m *Status) NewMessage() fx.Message { return &Status{} }

// TypeID implements SerializableMessage.
func (m *Status) TypeID() uint32 { return StatusTypeID }

// Serializable implements SerializableMessage.
func (m *Status) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Status) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Status) Reset() { *m = Status{} }

// String implements proto.Message.
func (m *Status) String() string { return proto.CompactTextString(m) }

// ScanQuery polls all slave addresses on the bus.
type ScanQuery struct {
}

// NewMessage implements Message.
func (m *ScanQuery) NewMessage() fx.Message { return &ScanQuery{} }

// TypeID implements SerializableMessage.
func (m *ScanQuery) TypeID() uint32 { return ScanQueryTypeID }

// Serializable implements SerializableMessage.
func (m *ScanQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ScanQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ScanQuery) Reset() { *m = ScanQuery{} }

// String implements proto.Message.
func (m *ScanQuery) String() string { return proto.CompactTextString(m) }

// ScanReply lists the addresses which ACKed.
type ScanReply struct {
	Addrs []uint32 `protobuf:"varint,1,rep,packed,name=addrs,proto3" json:"addrs"`
}

// NewMessage implements Message.
func (m *ScanReply) NewMessage() fx.Message { return &ScanReply{} }

// TypeID implements SerializableMessage.
func (m *ScanReply) TypeID() uint32 { return ScanReplyTypeID }

// Serializable implements SerializableMessage.
func (m *ScanReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ScanReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ScanReply) Reset() { *m = ScanReply{} }

// String implements proto.Message.
func (m *ScanReply) String() string { return proto.CompactTextString(m) }

// SampleEvent is a value read by a master.
type SampleEvent struct {
	Addr    uint32  `protobuf:"varint,1,opt,name=addr,proto3" json:"addr"`
	Raw     []byte  `protobuf:"bytes,2,opt,name=raw,proto3" json:"raw,omitempty"`
	Value   uint32  `protobuf:"varint,3,opt,name=value,proto3" json:"value"`
	Signed  int32   `protobuf:"varint,4,opt,name=signed,proto3" json:"signed"`
	Voltage float64 `protobuf:"fixed64,5,opt,name=voltage,proto3" json:"voltage"`
}

// NewMessage implements Message.
func (m *SampleEvent) NewMessage() fx.Message { return &SampleEvent{} }

// TypeID implements SerializableMessage.
func (m *SampleEvent) TypeID() uint32 { return SampleEventTypeID }

// Serializable implements SerializableMessage.
func (m *SampleEvent) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SampleEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SampleEvent) Reset() { *m = SampleEvent{} }

// String implements proto.Message.
func (m *SampleEvent) String() string { return proto.CompactTextString(m) }

// TransactionEvent reports an ended bus transaction seen by the slave.
type TransactionEvent struct {
	Outcome   string `protobuf:"bytes,1,opt,name=outcome,proto3" json:"outcome"`
	Received  uint32 `protobuf:"varint,2,opt,name=received,proto3" json:"received"`
	BytesSent uint32 `protobuf:"varint,3,opt,name=bytes_sent,proto3" json:"bytes_sent"`
}

// NewMessage implements Message.
func (m *TransactionEvent) NewMessage() fx.Message { return &TransactionEvent{} }

// TypeID implements SerializableMessage.
func (m *TransactionEvent) TypeID() uint32 { return TransactionEventTypeID }

// Serializable implements SerializableMessage.
func (m *TransactionEvent) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *TransactionEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TransactionEvent) Reset() { *m = TransactionEvent{} }

// String implements proto.Message.
func (m *TransactionEvent) String() string { return proto.CompactTextString(m) }

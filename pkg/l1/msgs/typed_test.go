package msgs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedEnvelope(t *testing.T) {
	typed, err := TypedFrom(&ScanReply{Addrs: []uint32{0x24, 0x42}})
	require.NoError(t, err)
	require.True(t, typed.IsCommand())
	require.True(t, typed.IsReply())
	typed.Sequence = 7
	data, err := typed.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTyped(data)
	require.NoError(t, err)
	require.Equal(t, ScanReplyTypeID, decoded.TypeID)
	require.Equal(t, uint32(7), decoded.Sequence)
	msg, err := decoded.Decode()
	require.NoError(t, err)
	require.Equal(t, &ScanReply{Addrs: []uint32{0x24, 0x42}}, msg)
}

func TestTypedKinds(t *testing.T) {
	testCases := []struct {
		msg     SerializableMessage
		command bool
		reply   bool
	}{
		{msg: &ValueQuery{}, command: true},
		{msg: &ValueReply{}, command: true, reply: true},
		{msg: &CommandErr{}, command: true, reply: true},
		{msg: &SampleEvent{}},
		{msg: &TransactionEvent{}},
	}
	for _, tc := range testCases {
		typed, err := TypedFrom(tc.msg)
		require.NoError(t, err)
		require.Equal(t, tc.command, typed.IsCommand(), "%T", tc.msg)
		require.Equal(t, !tc.command, typed.IsEvent(), "%T", tc.msg)
		require.Equal(t, tc.reply, typed.IsReply(), "%T", tc.msg)
	}
}

func TestSampleEventFields(t *testing.T) {
	typed, err := TypedFrom(&SampleEvent{Addr: 0x24, Raw: []byte{0xff, 0xfe}, Value: 0xfffe, Signed: -2, Voltage: 0.6})
	require.NoError(t, err)
	msg, err := typed.Decode()
	require.NoError(t, err)
	ev := msg.(*SampleEvent)
	require.Equal(t, int32(-2), ev.Signed)
	require.Equal(t, 0.6, ev.Voltage)
	require.Equal(t, []byte{0xff, 0xfe}, ev.Raw)
}

func TestUnknownType(t *testing.T) {
	typed := &Typed{TypeID: GroupCustom | 0x1234}
	_, err := typed.Decode()
	require.Error(t, err)
	require.IsType(t, &ErrUnknownType{}, err)

	_, err = TypedFrom(nil)
	require.Equal(t, ErrNotSerializable, err)
}

func TestRegisterTwicePanics(t *testing.T) {
	require.Panics(t, func() { Register((*ValueQuery)(nil)) })
}

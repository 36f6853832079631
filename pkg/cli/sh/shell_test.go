package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/msgs"
)

func TestFormatInfo(t *testing.T) {
	ref := l1.DeviceRef{Type: "i2cslave", ID: "dev0"}
	require.Equal(t, "i2cslave/dev0", FormatInfo(l1.DeviceInfo{Ref: ref}))
	require.Equal(t, "i2cslave/dev0: adc", FormatInfo(l1.DeviceInfo{Ref: ref, Meta: l1.DeviceMeta{Description: "adc"}}))
}

func TestFormatMsg(t *testing.T) {
	out, err := FormatMsg(&msgs.ValueReply{Value: 5, Width: 2}, true)
	require.NoError(t, err)
	require.JSONEq(t, `{"value":5,"width":2}`, out)

	out, err = FormatMsg(&msgs.ValueReply{Value: 5, Width: 2}, false)
	require.NoError(t, err)
	require.Contains(t, out, "ValueReply {")
	require.Contains(t, out, "value:5")
}

func TestDoNotConnected(t *testing.T) {
	_, err := (&Shell{}).Do(&msgs.StatusQuery{})
	require.Equal(t, ErrNotConnected, err)
}

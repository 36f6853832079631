package bus_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"

	"github.com/robotalks/i2cslave.go/pkg/sim/bus"
	"github.com/robotalks/i2cslave.go/pkg/slave"
)

func TestNoDevice(t *testing.T) {
	b := bus.New("empty")
	err := b.Tx(0x24, nil, make([]byte, 2))
	require.True(t, errors.Is(err, bus.ErrNoSuchDevice))
	require.Equal(t, bus.Stats{Starts: 1, Stops: 1, Clocks: 9}, b.Stats())

	found, err := b.Scan()
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestTenBitAddr(t *testing.T) {
	b := bus.New("ten")
	require.Equal(t, bus.ErrTenBitAddr, b.Tx(0x100, nil, make([]byte, 1)))
	_, err := b.Ping(0x80)
	require.Equal(t, bus.ErrTenBitAddr, err)
}

func TestSpeed(t *testing.T) {
	b := bus.New("speed")
	require.Equal(t, bus.DefaultSpeed, b.Speed())
	require.NoError(t, b.SetSpeed(400*physic.KiloHertz))
	require.Equal(t, 400*physic.KiloHertz, b.Speed())
	require.Error(t, b.SetSpeed(0))
}

func TestRegistry(t *testing.T) {
	b := bus.New("SIMTEST")
	require.NoError(t, b.Register())
	dev, err := slave.New(b, slave.DefaultConfig)
	require.NoError(t, err)
	require.NoError(t, dev.Initialize())
	require.NoError(t, dev.SetTransmitValue(0xabcd))

	bc, err := i2creg.Open("SIMTEST")
	require.NoError(t, err)
	require.Equal(t, "SIMTEST", bc.String())
	d := &i2c.Dev{Bus: bc, Addr: 0x24}
	out := make([]byte, 2)
	require.NoError(t, d.Tx(nil, out))
	require.Equal(t, []byte{0xab, 0xcd}, out)
	require.NoError(t, bc.Close())

	// closing an opened handle leaves the bus usable.
	require.NoError(t, b.Tx(0x24, nil, out))
	stats := b.Stats()
	require.Equal(t, 2, stats.Starts)
	require.Equal(t, 2, stats.Stops)
	require.NotZero(t, stats.Interrupts)
}

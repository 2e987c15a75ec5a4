package udp

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/netsampler/nfrelay/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUdpDriverSend(t *testing.T) {
	collector, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer collector.Close()
	port := collector.LocalAddr().(*net.UDPAddr).Port

	tr, err := transport.NewTransport("udp", New("127.0.0.1", port))
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Send(nil, []byte("message 1")))
	require.NoError(t, tr.Send(nil, []byte("message 2")))

	buf := make([]byte, 64)
	for _, expect := range []string{"message 1", "message 2"} {
		require.NoError(t, collector.SetReadDeadline(time.Now().Add(5*time.Second)))
		n, _, err := collector.ReadFromUDP(buf)
		require.NoError(t, err)
		assert.Equal(t, expect, string(buf[:n]))
	}
}

func TestUdpDriverErrors(t *testing.T) {
	_, err := transport.NewTransport("udp", New("invalid host name", 1))
	var driverErr *transport.DriverTransportError
	require.True(t, errors.As(err, &driverErr))
	assert.Equal(t, "udp", driverErr.Driver)
	assert.True(t, errors.Is(err, transport.ErrTransport))

	d := New("127.0.0.1", 9)
	assert.Error(t, d.Send(nil, []byte("x")))
	assert.NoError(t, d.Close())
}

package utils

import (
	"encoding/binary"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader(version uint16, domain uint32) []byte {
	payload := make([]byte, 20)
	payload[0], payload[1] = byte(version>>8), byte(version)
	payload[16], payload[17], payload[18], payload[19] = byte(domain>>24), byte(domain>>16), byte(domain>>8), byte(domain)
	return payload
}

func TestIdentifySession(t *testing.T) {
	src := netip.MustParseAddrPort("192.0.2.1:4739")

	base, err := IdentifySession(testHeader(9, 7), src)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1:4739/7", base.String())

	same, err := IdentifySession(testHeader(9, 7), src)
	require.NoError(t, err)
	assert.Equal(t, base, same)

	tests := []struct {
		name    string
		payload []byte
		src     string
	}{
		{"other port", testHeader(9, 7), "192.0.2.1:4740"},
		{"other address", testHeader(9, 7), "192.0.2.2:4739"},
		{"other source id", testHeader(9, 8), "192.0.2.1:4739"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := IdentifySession(tt.payload, netip.MustParseAddrPort(tt.src))
			require.NoError(t, err)
			assert.NotEqual(t, base, key)
		})
	}
}

func testIPFIXHeader(domain uint32, firstSet uint32) []byte {
	payload := make([]byte, 20)
	payload[0], payload[1] = 0, 10
	binary.BigEndian.PutUint32(payload[12:], domain)
	binary.BigEndian.PutUint32(payload[16:], firstSet)
	return payload
}

func TestIdentifySessionIPFIX(t *testing.T) {
	src := netip.MustParseAddrPort("[::ffff:192.0.2.1]:4739")

	// a template set then a data set, both from observation domain 7
	templates, err := IdentifySession(testIPFIXHeader(7, 0x00020014), src)
	require.NoError(t, err)
	data, err := IdentifySession(testIPFIXHeader(7, 0x01000010), src)
	require.NoError(t, err)
	assert.Equal(t, templates, data)
	assert.Equal(t, "192.0.2.1:4739/7", data.String())

	other, err := IdentifySession(testIPFIXHeader(8, 0x01000010), src)
	require.NoError(t, err)
	assert.NotEqual(t, data, other)

	_, err = IdentifySession(testIPFIXHeader(7, 0)[:16], src)
	assert.NoError(t, err)
	_, err = IdentifySession(testIPFIXHeader(7, 0)[:15], src)
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestIdentifySessionLegacy(t *testing.T) {
	a, err := IdentifySession(testHeader(5, 1), netip.MustParseAddrPort("192.0.2.1:2055"))
	require.NoError(t, err)
	b, err := IdentifySession(testHeader(5, 2), netip.MustParseAddrPort("198.51.100.1:9995"))
	require.NoError(t, err)
	assert.Equal(t, LegacySessionKey, a)
	assert.Equal(t, a, b)
}

func TestIdentifySessionErrors(t *testing.T) {
	src := netip.MustParseAddrPort("192.0.2.1:2055")

	_, err := IdentifySession([]byte{0}, src)
	assert.ErrorIs(t, err, ErrShortPacket)

	_, err = IdentifySession([]byte{0, 9, 0, 0}, src)
	assert.ErrorIs(t, err, ErrShortPacket)

	_, err = IdentifySession(testHeader(7, 1), src)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
	assert.EqualError(t, err, "version 7 ignored")
}

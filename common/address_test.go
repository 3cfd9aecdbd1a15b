package common

import (
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want PeerAddress
	}{
		{"tcp:127.0.0.1:6001", PeerAddress{TCP, "127.0.0.1", 6001}},
		{"udp:localhost:6000", PeerAddress{UDP, "localhost", 6000}},
		{"tcp:::1:7000", PeerAddress{TCP, "::1", 7000}},
		{"tcp:[::1]:7000", PeerAddress{TCP, "::1", 7000}},
	}

	for _, tt := range tests {
		got, err := ParseAddress(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseAddressErrors(t *testing.T) {
	_, err := ParseAddress("sctp:host:1")
	assert.True(t, errors.Is(err, ErrUnsupportedTransport))

	_, err = ParseAddress("TCP:host:1")
	assert.True(t, errors.Is(err, ErrUnsupportedTransport), "transport is lowercase only")

	for _, in := range []string{"", "tcp", "localhost:6000", "tcp::6000", "tcp:host:70000", "tcp:host:x"} {
		_, err := ParseAddress(in)
		assert.True(t, errors.Is(err, ErrInvalidAddress), in)
	}
}

func TestPeerAddressString(t *testing.T) {
	a := PeerAddress{Transport: UDP, Host: "10.0.0.2", Port: 6000}
	assert.Equal(t, "udp:10.0.0.2:6000", a.String())
	assert.Equal(t, "10.0.0.2:6000", a.HostPort())
	assert.Equal(t, "udp", a.Network())

	v6 := PeerAddress{Transport: TCP, Host: "::1", Port: 80}
	assert.Equal(t, "[::1]:80", v6.HostPort())

	parsed, err := ParseAddress(v6.String())
	require.NoError(t, err)
	assert.Equal(t, v6, parsed)
}

func TestNewPeerAddress(t *testing.T) {
	a, err := NewPeerAddress(TCP, "localhost:5000")
	require.NoError(t, err)
	assert.Equal(t, "tcp:localhost:5000", a.String())

	_, err = NewPeerAddress(TCP, "localhost")
	assert.Error(t, err)
}

func TestGetHostFromAddr(t *testing.T) {
	addr := &net.TCPAddr{IP: net.ParseIP("192.168.1.4"), Port: 4000}
	assert.Equal(t, "192.168.1.4", GetHostFromAddr(addr))
	assert.Equal(t, "", GetHostFromAddr(nil))
}

package common

import (
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Transport string

const (
	TCP Transport = "tcp"
	UDP Transport = "udp"
)

var (
	ErrInvalidAddress       = errors.New("invalid peer address")
	ErrUnsupportedTransport = errors.New("unsupported transport")
)

// PeerAddress is the (transport, host, port) triple peers advertise to the
// index server and that downloads are dialed against.
type PeerAddress struct {
	Transport Transport
	Host      string
	Port      uint16
}

func ParseTransport(s string) (Transport, error) {
	switch Transport(s) {
	case TCP, UDP:
		return Transport(s), nil
	}

	return "", errors.Wrapf(ErrUnsupportedTransport, "%q", s)
}

// ParseAddress parses the canonical transport:host:port form. The host is
// everything between the first and the last colon, so IPv6 literals are
// accepted as is.
func ParseAddress(s string) (PeerAddress, error) {
	var address PeerAddress

	first := strings.Index(s, ":")
	last := strings.LastIndex(s, ":")
	if first < 0 || first == last {
		return address, errors.Wrapf(ErrInvalidAddress, "%q is not transport:host:port", s)
	}

	transport, err := ParseTransport(s[:first])
	if err != nil {
		return address, err
	}

	host := strings.TrimSuffix(strings.TrimPrefix(s[first+1:last], "["), "]")
	if host == "" {
		return address, errors.Wrapf(ErrInvalidAddress, "%q has an empty host", s)
	}

	port, err := strconv.ParseUint(s[last+1:], 10, 16)
	if err != nil {
		return address, errors.Wrapf(ErrInvalidAddress, "%q has a bad port", s)
	}

	address = PeerAddress{
		Transport: transport,
		Host:      host,
		Port:      uint16(port),
	}

	return address, nil
}

func NewPeerAddress(transport Transport, hostPort string) (PeerAddress, error) {
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return PeerAddress{}, errors.Wrap(ErrInvalidAddress, err.Error())
	}

	return ParseAddress(string(transport) + ":" + host + ":" + port)
}

func (a PeerAddress) String() string {
	return string(a.Transport) + ":" + a.Host + ":" + strconv.FormatUint(uint64(a.Port), 10)
}

func (a PeerAddress) Network() string {
	return string(a.Transport)
}

func (a PeerAddress) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}

// GetHostFromAddr strips the port from a connection or datagram source
// address, for log lines.
func GetHostFromAddr(addr net.Addr) string {
	if addr == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}

	return host
}

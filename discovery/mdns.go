package discovery

import (
	"context"
	"net"
	"strings"

	"github.com/grandcat/zeroconf"
	"github.com/pkg/errors"

	"p2pindex/common"
)

const SERVICE_DOMAIN = "local."

var ErrNotFound = errors.New("no index server found")

func ServiceType(transport common.Transport) string {
	return "_p2pindex._" + string(transport)
}

// Advertise announces an index server listening on port. Shutdown the
// returned server to withdraw it.
func Advertise(instance string, transport common.Transport, port int) (*zeroconf.Server, error) {
	server, err := zeroconf.Register(
		instance,
		ServiceType(transport),
		SERVICE_DOMAIN,
		port,
		[]string{"txtv=1", "transport=" + string(transport)},
		nil,
	)
	if err != nil {
		return nil, errors.Wrap(err, "registering mdns service")
	}

	return server, nil
}

// Lookup returns the first index server announced for transport before ctx
// expires.
func Lookup(ctx context.Context, transport common.Transport) (common.PeerAddress, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return common.PeerAddress{}, errors.Wrap(err, "creating mdns resolver")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceType(transport), SERVICE_DOMAIN, entries); err != nil {
		return common.PeerAddress{}, errors.Wrap(err, "browsing mdns")
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return common.PeerAddress{}, ErrNotFound
			}
			if address, err := AddressFromEntry(entry, transport); err == nil {
				return address, nil
			}
		case <-ctx.Done():
			return common.PeerAddress{}, ErrNotFound
		}
	}
}

// AddressFromEntry builds the index address from a resolved service,
// preferring IPv4. The transport TXT record wins over the browsed one.
func AddressFromEntry(entry *zeroconf.ServiceEntry, transport common.Transport) (common.PeerAddress, error) {
	for _, txt := range entry.Text {
		if value := strings.TrimPrefix(txt, "transport="); value != txt {
			parsed, err := common.ParseTransport(value)
			if err != nil {
				return common.PeerAddress{}, err
			}
			transport = parsed
		}
	}

	var ip net.IP
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0]
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0]
	} else {
		return common.PeerAddress{}, errors.Wrapf(ErrNotFound, "%s has no address", entry.Instance)
	}

	if entry.Port <= 0 || entry.Port > 65535 {
		return common.PeerAddress{}, errors.Wrapf(common.ErrInvalidAddress, "port %d", entry.Port)
	}

	return common.PeerAddress{Transport: transport, Host: ip.String(), Port: uint16(entry.Port)}, nil
}

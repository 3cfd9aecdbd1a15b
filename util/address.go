package util

import (
	"net"
)

// GetMyAddress returns the first non-loopback IPv4 address of this host, or
// nil when there is none.
func GetMyAddress() net.IP {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	for _, iface := range interfaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch t := addr.(type) {
			case *net.IPNet:
				ip = t.IP
			case *net.IPAddr:
				ip = t.IP
			}

			if ip == nil || ip.IsLoopback() {
				continue
			}

			ip = ip.To4()
			if ip == nil {
				continue
			}

			return ip
		}
	}

	return nil
}

// GetMyHost is GetMyAddress as a string, falling back to the loopback
// address.
func GetMyHost() string {
	if ip := GetMyAddress(); ip != nil {
		return ip.String()
	}

	return "127.0.0.1"
}

package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device is a controller found on the network
type Device struct {
	// Name is the mDNS instance name, normally the configured device name
	Name string

	// Hostname is the mDNS hostname without the trailing dot (e.g. "ESP32-2DMX.local")
	Hostname string

	// IP is the IPv4 address, or IPv6 when the device has none
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// Metadata contains the TXT record key/value pairs
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Name, d.Hostname, d.Host())
}

// Host returns the address in the form accepted by --host: the IP, with
// the port appended only when it is not 80.
func (d *Device) Host() string {
	if d.Port == 0 || d.Port == DefaultPort {
		if net.ParseIP(d.IP).To4() == nil && net.ParseIP(d.IP) != nil {
			return "[" + d.IP + "]"
		}
		return d.IP
	}
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return "http://" + d.Host()
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

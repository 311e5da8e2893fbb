package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Outlet represents an outlet accessory discovered on the network
type Outlet struct {
	// Name is the mDNS instance name (e.g., "Smart-Outlet")
	Name string

	// DeviceID is the accessory's MAC-style identifier from the id TXT record
	DeviceID string

	// Model is the md TXT record
	Model string

	// Category is the ci TXT record (7 for outlets)
	Category int

	// Paired is false while the accessory advertises sf=1
	Paired bool

	// Hostname is the mDNS hostname
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 address was advertised
	IP string

	// Port is the accessory stack port
	Port int

	// Metadata contains all TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the outlet was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the outlet
func (o *Outlet) String() string {
	return fmt.Sprintf("Outlet %s (%s) at %s", o.Name, o.DeviceID, o.Addr())
}

// Addr returns host:port for the accessory stack
func (o *Outlet) Addr() string {
	return net.JoinHostPort(o.IP, strconv.Itoa(o.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (o *Outlet) GetMetadata(key string) string {
	if o.Metadata == nil {
		return ""
	}
	return o.Metadata[key]
}

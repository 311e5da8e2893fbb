package hapstack

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/smartoutlet/internal/accessory"
)

const (
	// ServiceType is the mDNS service type accessories advertise
	ServiceType = "_hap._tcp"

	mdnsDomain = "local."
)

// Advertisement is a running mDNS registration
type Advertisement interface {
	Shutdown()
}

// RegisterFunc publishes an mDNS service instance
type RegisterFunc func(instance string, port int, txt []string) (Advertisement, error)

func zeroconfRegister(instance string, port int, txt []string) (Advertisement, error) {
	server, err := zeroconf.Register(instance, ServiceType, mdnsDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	return server, nil
}

// DeviceID derives a stable MAC-style identifier from the serial number
func DeviceID(serial string) string {
	sum := sha512.Sum512([]byte(serial))
	parts := make([]string, 6)
	for i := range parts {
		parts[i] = fmt.Sprintf("%02X", sum[i])
	}
	return strings.Join(parts, ":")
}

// SetupHash is the sh TXT value: the first four bytes of
// SHA-512(setupID + deviceID), base64 encoded
func SetupHash(setupID, deviceID string) string {
	sum := sha512.Sum512([]byte(setupID + deviceID))
	return base64.StdEncoding.EncodeToString(sum[:4])
}

// TXTRecords returns the TXT records for an unpaired accessory
func TXTRecords(id accessory.Identity, setupID string) []string {
	deviceID := DeviceID(id.Serial)
	return []string{
		"c#=1",
		"ff=0",
		"id=" + deviceID,
		"md=" + id.Model,
		"pv=" + protocolMajorMinor(id.ProtocolVersion),
		"s#=1",
		"sf=1",
		fmt.Sprintf("ci=%d", int(id.Category)),
		"sh=" + SetupHash(setupID, deviceID),
	}
}

// protocolMajorMinor trims "1.1.0" to "1.1"
func protocolMajorMinor(v string) string {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return v
	}
	return parts[0] + "." + parts[1]
}

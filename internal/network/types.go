package network

import (
	"context"
	"fmt"
	"net/netip"
)

// Driver is the wireless driver collaborator. Board support packages provide
// the real implementation; simdriver provides one for host builds.
type Driver interface {
	// Scan enumerates visible access points.
	Scan(ctx context.Context) ([]AccessPoint, error)

	// ApplyConfig installs the dual-role configuration. Called exactly once.
	ApplyConfig(ctx context.Context, client ClientConfig, ap LocalAPConfig) error

	// Connect asks the driver to establish the client link.
	Connect(ctx context.Context) error

	// Status returns the combined state of the client and local AP roles.
	Status(ctx context.Context) (CombinedStatus, error)

	// Probe sends count echo requests to target and reports how many were
	// transmitted and how many replies came back.
	Probe(ctx context.Context, target netip.Addr, count int) (transmitted, received int, err error)
}

// AccessPoint is one entry of a scan result
type AccessPoint struct {
	SSID    string
	Channel uint8
}

// Credentials identify the network the client role joins
type Credentials struct {
	SSID       string
	Credential string
}

// ClientConfig is the client (station) role configuration
type ClientConfig struct {
	SSID       string
	Credential string
	// Channel is nil when the target network was not seen during the scan
	Channel *uint8
}

// LocalAPConfig is the locally hosted access point role configuration
type LocalAPConfig struct {
	SSID    string
	Channel uint8
}

// NetworkConfig is the full dual-role configuration handed to the driver
type NetworkConfig struct {
	Client  ClientConfig
	LocalAP LocalAPConfig
}

// ChannelString renders the client channel, "unknown" when not discovered
func (c ClientConfig) ChannelString() string {
	if c.Channel == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *c.Channel)
}

// RoleState is the lifecycle state of one radio role
type RoleState int

const (
	RoleStopped RoleState = iota
	RoleStarting
	RoleStarted
)

// LinkState is the association state of the client role
type LinkState int

const (
	LinkDisconnected LinkState = iota
	LinkConnecting
	LinkConnected
)

// IPState is the address assignment state of a role
type IPState int

const (
	IPWaiting IPState = iota
	IPDone
	IPFailed
)

func (s RoleState) String() string {
	switch s {
	case RoleStopped:
		return "stopped"
	case RoleStarting:
		return "starting"
	case RoleStarted:
		return "started"
	default:
		return fmt.Sprintf("RoleState(%d)", int(s))
	}
}

func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "disconnected"
	case LinkConnecting:
		return "connecting"
	case LinkConnected:
		return "connected"
	default:
		return fmt.Sprintf("LinkState(%d)", int(s))
	}
}

func (s IPState) String() string {
	switch s {
	case IPWaiting:
		return "waiting"
	case IPDone:
		return "done"
	case IPFailed:
		return "failed"
	default:
		return fmt.Sprintf("IPState(%d)", int(s))
	}
}

// IPSettings is the address information assigned to the client role
type IPSettings struct {
	Address netip.Addr
	Subnet  netip.Prefix
	Gateway netip.Addr
	DNS     netip.Addr
}

// ClientStatus is the state of the client role
type ClientStatus struct {
	Role RoleState
	Link LinkState
	IP   IPState
	// Settings is only meaningful when IP is IPDone
	Settings IPSettings
}

// APStatus is the state of the local access point role
type APStatus struct {
	Role RoleState
	IP   IPState
}

// CombinedStatus is what the driver reports for both roles
type CombinedStatus struct {
	Client  ClientStatus
	LocalAP APStatus
}

// FullyUp reports whether the client is started, associated and addressed
// and the local AP is started and addressed. The client's IP settings are
// returned when it is.
func (s CombinedStatus) FullyUp() (IPSettings, bool) {
	c, ap := s.Client, s.LocalAP
	if c.Role != RoleStarted || c.Link != LinkConnected || c.IP != IPDone {
		return IPSettings{}, false
	}
	if ap.Role != RoleStarted || ap.IP != IPDone {
		return IPSettings{}, false
	}
	if !c.Settings.Gateway.IsValid() {
		return IPSettings{}, false
	}
	return c.Settings, true
}

// String renders the status for diagnostics
func (s CombinedStatus) String() string {
	client := fmt.Sprintf("client{%s %s ip:%s", s.Client.Role, s.Client.Link, s.Client.IP)
	if s.Client.IP == IPDone {
		client += fmt.Sprintf(" addr:%s gw:%s", s.Client.Settings.Address, s.Client.Settings.Gateway)
	}
	client += "}"
	return fmt.Sprintf("%s ap{%s ip:%s}", client, s.LocalAP.Role, s.LocalAP.IP)
}

// ReachabilityReport is the outcome of one probe batch
type ReachabilityReport struct {
	Target      netip.Addr
	Transmitted int
	Received    int
}

// Lossless reports whether every transmitted probe was answered
func (r ReachabilityReport) Lossless() bool {
	return r.Transmitted > 0 && r.Transmitted == r.Received
}

// Handle is the live, verified network connection returned by BringUp
type Handle struct {
	Driver Driver
	Config NetworkConfig
	IP     IPSettings
	Report ReachabilityReport
}

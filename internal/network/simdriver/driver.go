// Package simdriver is a simulated wireless driver for host builds and tests.
//
// It behaves like a radio that sees a fixed list of access points. Failure
// switches reproduce each way a real bring-up can go wrong, so the bootstrap
// path can be exercised end to end without hardware.
package simdriver

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/logging"
	"github.com/muurk/smartoutlet/internal/network"
)

// Config scripts the simulated radio
type Config struct {
	// AccessPoints are returned by Scan, in order
	AccessPoints []network.AccessPoint

	// Hidden lets the client join an SSID that does not appear in the scan
	Hidden bool

	// Address, Gateway and Subnet are assigned to the client role
	Address netip.Addr
	Gateway netip.Addr
	Subnet  netip.Prefix

	// Failure switches
	FailScan      bool
	RejectConfig  bool
	FailConnect   bool
	FailLocalAP   bool
	WithholdIP    bool
	ProbeLoss     int
	ProbeInterval time.Duration
}

// DefaultConfig returns a simulated home network on channel 6
func DefaultConfig(ssid string) Config {
	return Config{
		AccessPoints: []network.AccessPoint{{SSID: ssid, Channel: 6}},
		Address:      netip.MustParseAddr("192.168.1.50"),
		Gateway:      netip.MustParseAddr("192.168.1.1"),
		Subnet:       netip.MustParsePrefix("192.168.1.0/24"),
	}
}

var (
	errScan      = errors.New("simulated scan failure")
	errConfig    = errors.New("simulated driver rejected configuration")
	errConnect   = errors.New("simulated association failure")
	errNotConfig = errors.New("driver not configured")
)

// Driver implements network.Driver
type Driver struct {
	cfg Config

	mu        sync.Mutex
	client    *network.ClientConfig
	ap        *network.LocalAPConfig
	connected bool
}

// New creates a simulated driver
func New(cfg Config) *Driver {
	return &Driver{cfg: cfg}
}

// Scan returns the scripted access point list
func (d *Driver) Scan(ctx context.Context) ([]network.AccessPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.cfg.FailScan {
		return nil, errScan
	}
	out := make([]network.AccessPoint, len(d.cfg.AccessPoints))
	copy(out, d.cfg.AccessPoints)
	return out, nil
}

// ApplyConfig records the dual-role configuration
func (d *Driver) ApplyConfig(ctx context.Context, client network.ClientConfig, ap network.LocalAPConfig) error {
	if d.cfg.RejectConfig {
		return errConfig
	}
	if ap.Channel < 1 || ap.Channel > 13 {
		return fmt.Errorf("local AP channel %d out of range", ap.Channel)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.client = &client
	d.ap = &ap

	logging.Debug("Simulated driver configured",
		zap.String("ssid", client.SSID),
		zap.String("client_channel", client.ChannelString()),
		zap.String("local_ap", ap.SSID),
	)
	return nil
}

// Connect associates the client role when the target SSID is reachable
func (d *Driver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return errNotConfig
	}
	if d.cfg.FailConnect {
		return errConnect
	}

	_, visible := network.FindAccessPoint(d.cfg.AccessPoints, d.client.SSID)
	d.connected = visible || d.cfg.Hidden
	return nil
}

// Status reports both roles
func (d *Driver) Status(ctx context.Context) (network.CombinedStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var s network.CombinedStatus
	if d.client == nil {
		return s, nil
	}

	s.Client.Role = network.RoleStarted
	if d.connected {
		s.Client.Link = network.LinkConnected
		if !d.cfg.WithholdIP {
			s.Client.IP = network.IPDone
			s.Client.Settings = network.IPSettings{
				Address: d.cfg.Address,
				Subnet:  d.cfg.Subnet,
				Gateway: d.cfg.Gateway,
				DNS:     d.cfg.Gateway,
			}
		}
	}

	if d.cfg.FailLocalAP {
		s.LocalAP.Role = network.RoleStarting
	} else {
		s.LocalAP = network.APStatus{Role: network.RoleStarted, IP: network.IPDone}
	}
	return s, nil
}

// Probe simulates an echo batch, dropping ProbeLoss replies
func (d *Driver) Probe(ctx context.Context, target netip.Addr, count int) (int, int, error) {
	if target != d.cfg.Gateway {
		// Nothing but the gateway answers on the simulated segment
		return count, 0, nil
	}

	received := 0
	for i := 0; i < count; i++ {
		if d.cfg.ProbeInterval > 0 {
			select {
			case <-ctx.Done():
				return i, received, ctx.Err()
			case <-time.After(d.cfg.ProbeInterval):
			}
		}
		if i >= d.cfg.ProbeLoss {
			received++
		}
	}
	return count, received, nil
}

// Applied returns the configuration handed to the driver, if any
func (d *Driver) Applied() (network.NetworkConfig, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return network.NetworkConfig{}, false
	}
	return network.NetworkConfig{Client: *d.client, LocalAP: *d.ap}, true
}

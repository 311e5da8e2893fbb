package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/logging"
)

const (
	// ServiceType is the mDNS service type accessories advertise
	ServiceType = "_hap._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for outlet discovery
	DefaultScanTimeout = 10 * time.Second

	// CategoryOutlet is the ci TXT value outlets advertise
	CategoryOutlet = 7
)

// Scanner handles mDNS outlet discovery
type Scanner struct {
	// Timeout is the maximum time to wait for discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// collector accumulates outlets from concurrent browse callbacks
type collector struct {
	mu      sync.Mutex
	outlets []*Outlet
	seen    map[string]bool
}

func (c *collector) add(o *Outlet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	key := o.DeviceID + "|" + o.Addr()
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.outlets = append(c.outlets, o)
}

func (c *collector) list() []*Outlet {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Outlet, len(c.outlets))
	copy(out, c.outlets)
	return out
}

// ScanForOutlets discovers all outlets on the local network until the
// timeout elapses or ctx is cancelled
func (s *Scanner) ScanForOutlets(ctx context.Context) ([]*Outlet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var found collector
	drained := make(chan struct{})

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(drained)
		for entry := range entries {
			if outlet := parseServiceEntry(entry); outlet != nil {
				logging.Debug("Outlet discovered", zap.String("outlet", outlet.String()))
				found.add(outlet)
			}
		}
	}()

	err = resolver.Browse(ctx, ServiceType, ServiceDomain, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// zeroconf closes entries once the browse context ends
	select {
	case <-drained:
	case <-time.After(time.Second):
	}

	return found.list(), nil
}

// WaitForOutlet waits for a specific outlet by device id or instance name
func (s *Scanner) WaitForOutlet(ctx context.Context, match string) (*Outlet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	outletChan := make(chan *Outlet, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			if outlet := matchOutlet(entry, match); outlet != nil {
				select {
				case outletChan <- outlet:
				default:
				}
				cancel()
			}
		}
	}()

	err = resolver.Browse(ctx, ServiceType, ServiceDomain, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case outlet := <-outletChan:
		return outlet, nil
	case <-ctx.Done():
		select {
		case outlet := <-outletChan:
			return outlet, nil
		default:
		}
		return nil, fmt.Errorf("outlet %s not found within timeout", match)
	}
}

// matchOutlet returns the outlet in entry when its device id or
// instance name equals match
func matchOutlet(entry *zeroconf.ServiceEntry, match string) *Outlet {
	if match == "" {
		return nil
	}
	outlet := parseServiceEntry(entry)
	if outlet == nil || (outlet.DeviceID != match && outlet.Name != match) {
		return nil
	}
	return outlet
}

// parseServiceEntry converts a zeroconf service entry to an Outlet.
// Returns nil if the entry is not an outlet accessory.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Outlet {
	metadata := parseTXTRecords(entry.Text)

	category, err := strconv.Atoi(metadata["ci"])
	if err != nil || category != CategoryOutlet {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	return &Outlet{
		Name:         entry.Instance,
		DeviceID:     metadata["id"],
		Model:        metadata["md"],
		Category:     category,
		Paired:       metadata["sf"] == "0",
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func parseTXTRecords(txt []string) map[string]string {
	metadata := make(map[string]string, len(txt))
	for _, t := range txt {
		// TXT records are in "key=value" format
		parts := strings.SplitN(t, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// Package discovery finds outlet accessories on the local network over mDNS.
//
// Accessories advertise the "_hap._tcp" service type with TXT records
// describing them. Entries whose ci record is not the outlet category are
// ignored.
//
// # Usage Example
//
//	outlets, err := discovery.NewScanner().ScanForOutlets(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, o := range outlets {
//	    fmt.Println(o)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Outlets must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery

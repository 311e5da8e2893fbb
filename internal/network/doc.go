// Package network brings up the device's wireless link and verifies it can
// route before anything else starts.
//
// # Bootstrap Sequence
//
// A Bootstrapper runs a fixed sequence, each step only if the previous one
// succeeded:
//
//  1. Scan: enumerate visible access points. Not finding the target SSID is
//     informational; the client channel is left unknown.
//  2. Configure: apply a dual-role configuration. The client joins the target
//     network, the local access point uses the discovered channel or the
//     fallback channel (1 by default).
//  3. Connect: request the client link and query the combined status.
//  4. Verify: require client started+connected+addressed and local AP
//     started+addressed, then send a batch of echo probes to the gateway.
//     Every probe must be answered.
//
// The states idle → scanning → configuring → connecting → verifying →
// connected|failed are tracked by a looplab/fsm state machine.
//
// # Usage Example
//
//	b := network.NewBootstrapper(driver, network.Options{
//	    LocalAPSSID: "aptest",
//	    ProbeCount:  5,
//	})
//
//	handle, err := b.BringUp(ctx, network.Credentials{SSID: "home", Credential: "secret123"})
//	if err != nil {
//	    // *BootstrapError; always fatal
//	}
//
// # Error Handling
//
// Failures are reported as *BootstrapError with one of ScanIncomplete,
// ConfigRejected, ConnectFailed, UnexpectedStatus or Unreachable. There is no
// retry: a link that reports connected but cannot route is treated the same
// as no link at all.
package network

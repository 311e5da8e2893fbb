package network

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind represents the bootstrap step that failed
type ErrorKind int

const (
	// ScanIncomplete indicates the driver could not complete the scan
	ScanIncomplete ErrorKind = iota
	// ConfigRejected indicates the driver refused the dual-role configuration
	ConfigRejected
	// ConnectFailed indicates the client link could not be requested or queried
	ConnectFailed
	// UnexpectedStatus indicates the roles did not reach the fully connected shape
	UnexpectedStatus
	// Unreachable indicates the gateway did not answer every probe
	Unreachable
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case ScanIncomplete:
		return "Scan Incomplete"
	case ConfigRejected:
		return "Config Rejected"
	case ConnectFailed:
		return "Connect Failed"
	case UnexpectedStatus:
		return "Unexpected Status"
	case Unreachable:
		return "Unreachable"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// BootstrapError is returned by BringUp. Every kind is fatal: startup stops
// before any accessory is registered.
type BootstrapError struct {
	Kind    ErrorKind
	Message string
	Status  *CombinedStatus     // set for UnexpectedStatus
	Report  *ReachabilityReport // set for Unreachable after a probe ran
	Err     error
}

// Error implements the error interface
func (e *BootstrapError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying driver error
func (e *BootstrapError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, msg string, err error) *BootstrapError {
	return &BootstrapError{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of a bootstrap error anywhere in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var bErr *BootstrapError
	if errors.As(err, &bErr) {
		return bErr.Kind, true
	}
	return 0, false
}

// IsUnreachable checks if an error is a reachability failure
func IsUnreachable(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Unreachable
}

// IsUnexpectedStatus checks if an error is a status shape failure
func IsUnexpectedStatus(err error) bool {
	k, ok := KindOf(err)
	return ok && k == UnexpectedStatus
}

// TroubleshootingHints returns advice for a bootstrap failure
func TroubleshootingHints(err error) []string {
	k, ok := KindOf(err)
	if !ok {
		return nil
	}

	switch k {
	case ScanIncomplete:
		return []string{
			"The radio could not complete a scan",
			"Check the antenna connection and power supply",
		}
	case ConfigRejected:
		return []string{
			"The driver rejected the network configuration",
			"Check the SSID length (max 32) and credential length (8-63 for WPA2)",
			"Check the local AP channel is between 1 and 13",
		}
	case ConnectFailed:
		return []string{
			"The client link could not be established",
			"Verify the network credential",
			"Make sure the access point is in range",
		}
	case UnexpectedStatus:
		return []string{
			"The link came up but did not reach a fully connected state",
			"Check that DHCP is enabled on the target network",
			"The local access point may have failed to start",
		}
	case Unreachable:
		return []string{
			"The gateway did not answer every reachability probe",
			"The link reports connected but cannot route",
			"Check for client isolation or a firewall dropping ICMP",
		}
	default:
		return nil
	}
}

// ShortMessage returns a one-line description of a bootstrap failure
func ShortMessage(err error) string {
	var bErr *BootstrapError
	if !errors.As(err, &bErr) {
		return err.Error()
	}

	switch bErr.Kind {
	case Unreachable:
		if bErr.Report != nil {
			return fmt.Sprintf("Gateway %s unreachable (%d/%d probes answered)",
				bErr.Report.Target, bErr.Report.Received, bErr.Report.Transmitted)
		}
		return "Gateway unreachable"
	case UnexpectedStatus:
		if bErr.Status != nil {
			return "Unexpected network status: " + bErr.Status.String()
		}
		return "Unexpected network status"
	default:
		return strings.TrimSpace(bErr.Kind.String() + ": " + bErr.Message)
	}
}

package network

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"testing"
)

func TestBootstrapError_Error(t *testing.T) {
	cause := errors.New("radio busy")
	err := newError(ScanIncomplete, "access point scan failed", cause)

	if got := err.Error(); got != "Scan Incomplete: access point scan failed (caused by: radio busy)" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the driver error")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("startup: %w", newError(Unreachable, "lost probes", nil))

	kind, ok := KindOf(err)
	if !ok || kind != Unreachable {
		t.Errorf("KindOf() = (%v, %v), want (Unreachable, true)", kind, ok)
	}
	if !IsUnreachable(err) {
		t.Error("IsUnreachable() = false")
	}
	if IsUnexpectedStatus(err) {
		t.Error("IsUnexpectedStatus() = true")
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf(plain error) should be false")
	}
}

func TestShortMessage(t *testing.T) {
	unreachable := newError(Unreachable, "timeouts", nil)
	unreachable.Report = &ReachabilityReport{
		Target:      netip.MustParseAddr("10.0.0.1"),
		Transmitted: 4,
		Received:    3,
	}

	if got := ShortMessage(unreachable); got != "Gateway 10.0.0.1 unreachable (3/4 probes answered)" {
		t.Errorf("ShortMessage() = %q", got)
	}

	status := fullyUp()
	unexpected := newError(UnexpectedStatus, "bad", nil)
	unexpected.Status = &status
	if got := ShortMessage(unexpected); !strings.HasPrefix(got, "Unexpected network status: client{") {
		t.Errorf("ShortMessage() = %q", got)
	}
}

func TestTroubleshootingHints(t *testing.T) {
	for _, kind := range []ErrorKind{ScanIncomplete, ConfigRejected, ConnectFailed, UnexpectedStatus, Unreachable} {
		if hints := TroubleshootingHints(newError(kind, "x", nil)); len(hints) == 0 {
			t.Errorf("no hints for %s", kind)
		}
	}
	if hints := TroubleshootingHints(errors.New("plain")); hints != nil {
		t.Errorf("hints for plain error = %v", hints)
	}
}

package network

import (
	"context"
	"errors"
	"net/netip"
	"testing"
)

// fakeDriver is a scripted Driver that records what it was asked to do
type fakeDriver struct {
	scan       []AccessPoint
	scanErr    error
	applyErr   error
	connectErr error
	status     CombinedStatus
	statusErr  error
	tx, rx     int
	probeErr   error

	calls       []string
	applied     *NetworkConfig
	probeTarget netip.Addr
	probeCount  int
}

func (d *fakeDriver) Scan(ctx context.Context) ([]AccessPoint, error) {
	d.calls = append(d.calls, "scan")
	return d.scan, d.scanErr
}

func (d *fakeDriver) ApplyConfig(ctx context.Context, client ClientConfig, ap LocalAPConfig) error {
	d.calls = append(d.calls, "apply")
	d.applied = &NetworkConfig{Client: client, LocalAP: ap}
	return d.applyErr
}

func (d *fakeDriver) Connect(ctx context.Context) error {
	d.calls = append(d.calls, "connect")
	return d.connectErr
}

func (d *fakeDriver) Status(ctx context.Context) (CombinedStatus, error) {
	d.calls = append(d.calls, "status")
	return d.status, d.statusErr
}

func (d *fakeDriver) Probe(ctx context.Context, target netip.Addr, count int) (int, int, error) {
	d.calls = append(d.calls, "probe")
	d.probeTarget = target
	d.probeCount = count
	return d.tx, d.rx, d.probeErr
}

func fullyUp() CombinedStatus {
	return CombinedStatus{
		Client: ClientStatus{
			Role: RoleStarted,
			Link: LinkConnected,
			IP:   IPDone,
			Settings: IPSettings{
				Address: netip.MustParseAddr("192.168.1.50"),
				Subnet:  netip.MustParsePrefix("192.168.1.0/24"),
				Gateway: netip.MustParseAddr("192.168.1.1"),
			},
		},
		LocalAP: APStatus{Role: RoleStarted, IP: IPDone},
	}
}

var creds = Credentials{SSID: "ssid", Credential: "password"}

func TestBringUp_ScenarioA(t *testing.T) {
	drv := &fakeDriver{
		scan:   []AccessPoint{{SSID: "ssid", Channel: 6}},
		status: fullyUp(),
		tx:     4,
		rx:     4,
	}

	var transitions []State
	b := NewBootstrapper(drv, Options{
		LocalAPSSID: "aptest",
		ProbeCount:  4,
		OnTransition: func(from, to State) {
			transitions = append(transitions, to)
		},
	})

	handle, err := b.BringUp(context.Background(), creds)
	if err != nil {
		t.Fatalf("BringUp() error = %v", err)
	}

	if drv.applied.Client.Channel == nil || *drv.applied.Client.Channel != 6 {
		t.Errorf("client channel = %s, want 6", drv.applied.Client.ChannelString())
	}
	if drv.applied.LocalAP.Channel != 6 {
		t.Errorf("local AP channel = %d, want 6", drv.applied.LocalAP.Channel)
	}
	if drv.probeTarget != netip.MustParseAddr("192.168.1.1") {
		t.Errorf("probe target = %s, want gateway", drv.probeTarget)
	}
	if drv.probeCount != 4 {
		t.Errorf("probe count = %d, want 4", drv.probeCount)
	}
	if handle.Report.Transmitted != 4 || handle.Report.Received != 4 {
		t.Errorf("report = %+v", handle.Report)
	}
	if handle.Driver != drv {
		t.Error("handle should carry the live driver")
	}
	if b.State() != StateConnected {
		t.Errorf("State() = %s, want connected", b.State())
	}

	want := []State{StateScanning, StateConfiguring, StateConnecting, StateVerifying, StateConnected}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestBringUp_ScenarioB(t *testing.T) {
	drv := &fakeDriver{
		scan:   nil,
		status: fullyUp(),
		tx:     4,
		rx:     2,
	}

	b := NewBootstrapper(drv, Options{LocalAPSSID: "aptest", ProbeCount: 4})
	handle, err := b.BringUp(context.Background(), creds)

	if handle != nil {
		t.Error("handle should be nil on failure")
	}
	if !IsUnreachable(err) {
		t.Fatalf("BringUp() error = %v, want Unreachable", err)
	}
	if drv.applied.Client.Channel != nil {
		t.Errorf("client channel = %s, want unknown", drv.applied.Client.ChannelString())
	}
	if drv.applied.LocalAP.Channel != 1 {
		t.Errorf("local AP channel = %d, want 1", drv.applied.LocalAP.Channel)
	}
	if b.State() != StateFailed {
		t.Errorf("State() = %s, want failed", b.State())
	}

	var bErr *BootstrapError
	if !errors.As(err, &bErr) || bErr.Report == nil || bErr.Report.Received != 2 {
		t.Errorf("error should carry the probe report, got %+v", bErr)
	}
}

func TestBringUp_ReachabilityGate(t *testing.T) {
	tests := []struct {
		name    string
		tx, rx  int
		wantErr bool
	}{
		{"all answered", 5, 5, false},
		{"one lost", 4, 3, true},
		{"all lost", 5, 0, true},
		{"nothing sent", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &fakeDriver{status: fullyUp(), tx: tt.tx, rx: tt.rx}
			_, err := NewBootstrapper(drv, Options{}).BringUp(context.Background(), creds)

			if (err != nil) != tt.wantErr {
				t.Fatalf("BringUp() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !IsUnreachable(err) {
				t.Errorf("error kind = %v, want Unreachable", err)
			}
		})
	}
}

func TestBringUp_StepFailures(t *testing.T) {
	boom := errors.New("driver failure")

	notUp := fullyUp()
	notUp.LocalAP.Role = RoleStarting

	tests := []struct {
		name      string
		drv       *fakeDriver
		wantKind  ErrorKind
		wantCalls []string
	}{
		{
			name:      "scan error",
			drv:       &fakeDriver{scanErr: boom},
			wantKind:  ScanIncomplete,
			wantCalls: []string{"scan"},
		},
		{
			name:      "config rejected",
			drv:       &fakeDriver{applyErr: boom},
			wantKind:  ConfigRejected,
			wantCalls: []string{"scan", "apply"},
		},
		{
			name:      "connect failed",
			drv:       &fakeDriver{connectErr: boom},
			wantKind:  ConnectFailed,
			wantCalls: []string{"scan", "apply", "connect"},
		},
		{
			name:      "status query failed",
			drv:       &fakeDriver{statusErr: boom},
			wantKind:  ConnectFailed,
			wantCalls: []string{"scan", "apply", "connect", "status"},
		},
		{
			name:      "local AP not started",
			drv:       &fakeDriver{status: notUp},
			wantKind:  UnexpectedStatus,
			wantCalls: []string{"scan", "apply", "connect", "status"},
		},
		{
			name:      "probe error",
			drv:       &fakeDriver{status: fullyUp(), probeErr: boom},
			wantKind:  Unreachable,
			wantCalls: []string{"scan", "apply", "connect", "status", "probe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBootstrapper(tt.drv, Options{})
			_, err := b.BringUp(context.Background(), creds)

			kind, ok := KindOf(err)
			if !ok {
				t.Fatalf("BringUp() error = %v, want *BootstrapError", err)
			}
			if kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", kind, tt.wantKind)
			}
			if len(tt.drv.calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", tt.drv.calls, tt.wantCalls)
			}
			for i := range tt.wantCalls {
				if tt.drv.calls[i] != tt.wantCalls[i] {
					t.Errorf("call %d = %s, want %s", i, tt.drv.calls[i], tt.wantCalls[i])
				}
			}
			if b.State() != StateFailed {
				t.Errorf("State() = %s, want failed", b.State())
			}
		})
	}
}

func TestBringUp_RunsOnce(t *testing.T) {
	drv := &fakeDriver{status: fullyUp(), tx: 5, rx: 5}
	b := NewBootstrapper(drv, Options{})

	if _, err := b.BringUp(context.Background(), creds); err != nil {
		t.Fatalf("first BringUp() error = %v", err)
	}
	if _, err := b.BringUp(context.Background(), creds); err == nil {
		t.Error("second BringUp() should fail")
	}
}

func TestBringUp_DefaultProbeCount(t *testing.T) {
	drv := &fakeDriver{status: fullyUp(), tx: 5, rx: 5}
	if _, err := NewBootstrapper(drv, Options{}).BringUp(context.Background(), creds); err != nil {
		t.Fatalf("BringUp() error = %v", err)
	}
	if drv.probeCount != DefaultProbeCount {
		t.Errorf("probe count = %d, want %d", drv.probeCount, DefaultProbeCount)
	}
}

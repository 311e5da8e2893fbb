package network

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/logging"
)

// DefaultProbeCount is the size of the reachability probe batch
const DefaultProbeCount = 5

// Options configure a Bootstrapper
type Options struct {
	// LocalAPSSID is the fixed name of the locally hosted access point
	LocalAPSSID string

	// FallbackChannel is the local AP channel when the target network is
	// not seen during the scan. Zero means DefaultLocalAPChannel.
	FallbackChannel uint8

	// ProbeCount is the number of reachability probes sent to the gateway.
	// Zero means DefaultProbeCount.
	ProbeCount int

	// OnTransition, when set, is called after every state change
	OnTransition TransitionFunc
}

// Bootstrapper drives scan → configure → connect → verify exactly once.
// It is not safe for concurrent use; BringUp runs before the control task starts.
type Bootstrapper struct {
	driver Driver
	opts   Options
	fsm    *fsm.FSM
}

// NewBootstrapper creates a bootstrapper in the idle state
func NewBootstrapper(driver Driver, opts Options) *Bootstrapper {
	if opts.ProbeCount <= 0 {
		opts.ProbeCount = DefaultProbeCount
	}
	if opts.FallbackChannel == 0 {
		opts.FallbackChannel = DefaultLocalAPChannel
	}
	return &Bootstrapper{
		driver: driver,
		opts:   opts,
		fsm:    newMachine(opts.OnTransition),
	}
}

// State returns the current bootstrap state
func (b *Bootstrapper) State() State {
	return State(b.fsm.Current())
}

// BringUp joins creds.SSID and verifies the gateway answers every probe.
// Each step runs only if the previous one succeeded; the first failure is
// returned as a *BootstrapError and nothing is retried.
func (b *Bootstrapper) BringUp(ctx context.Context, creds Credentials) (*Handle, error) {
	if b.State() != StateIdle {
		return nil, fmt.Errorf("bootstrap already ran (state %s)", b.State())
	}

	handle, err := b.run(ctx, creds)
	if err != nil {
		b.transition(ctx, eventFail)
		logging.Error("Network bootstrap failed", zap.Error(err))
		return nil, err
	}

	b.transition(ctx, eventSucceed)
	logging.Info("Network bootstrap complete",
		zap.String("address", handle.IP.Address.String()),
		zap.String("gateway", handle.IP.Gateway.String()),
	)
	return handle, nil
}

func (b *Bootstrapper) run(ctx context.Context, creds Credentials) (*Handle, error) {
	b.transition(ctx, eventScan)
	logging.Info("Scanning for access points", zap.String("ssid", creds.SSID))

	scan, err := b.driver.Scan(ctx)
	if err != nil {
		return nil, newError(ScanIncomplete, "access point scan failed", err)
	}

	if ap, ok := FindAccessPoint(scan, creds.SSID); ok {
		logging.Info("Found configured access point",
			zap.String("ssid", creds.SSID),
			zap.Uint8("channel", ap.Channel),
		)
	} else {
		logging.Info("Configured access point not found during scan, using unknown channel",
			zap.String("ssid", creds.SSID),
			zap.Int("visible", len(scan)),
		)
	}

	b.transition(ctx, eventConfigure)
	cfg := BuildConfig(scan, creds, b.opts.LocalAPSSID, b.opts.FallbackChannel)

	if err := b.driver.ApplyConfig(ctx, cfg.Client, cfg.LocalAP); err != nil {
		return nil, newError(ConfigRejected, "driver rejected configuration", err)
	}
	logging.Info("Network configuration applied",
		zap.String("client_channel", cfg.Client.ChannelString()),
		zap.String("local_ap", cfg.LocalAP.SSID),
		zap.Uint8("local_ap_channel", cfg.LocalAP.Channel),
	)

	b.transition(ctx, eventConnect)
	if err := b.driver.Connect(ctx); err != nil {
		return nil, newError(ConnectFailed, "client link request failed", err)
	}

	status, err := b.driver.Status(ctx)
	if err != nil {
		return nil, newError(ConnectFailed, "status query failed", err)
	}
	logging.Debug("Network status", zap.Stringer("status", status))

	b.transition(ctx, eventVerify)
	settings, ok := status.FullyUp()
	if !ok {
		bErr := newError(UnexpectedStatus, fmt.Sprintf("unexpected network status: %s", status), nil)
		bErr.Status = &status
		return nil, bErr
	}

	report, err := b.probe(ctx, settings)
	if err != nil {
		return nil, err
	}

	return &Handle{
		Driver: b.driver,
		Config: cfg,
		IP:     settings,
		Report: report,
	}, nil
}

func (b *Bootstrapper) probe(ctx context.Context, settings IPSettings) (ReachabilityReport, error) {
	target := settings.Gateway
	logging.Info("Network connected, probing gateway",
		zap.String("gateway", target.String()),
		zap.Int("count", b.opts.ProbeCount),
	)

	tx, rx, err := b.driver.Probe(ctx, target, b.opts.ProbeCount)
	report := ReachabilityReport{Target: target, Transmitted: tx, Received: rx}
	if err != nil {
		bErr := newError(Unreachable, fmt.Sprintf("probing gateway %s failed", target), err)
		bErr.Report = &report
		return report, bErr
	}

	logging.LogProbe(target.String(), tx, rx)

	if !report.Lossless() {
		bErr := newError(Unreachable,
			fmt.Sprintf("probing gateway %s resulted in timeouts (%d/%d answered)", target, rx, tx), nil)
		bErr.Report = &report
		return report, bErr
	}

	return report, nil
}

// transition fires a state machine event. The event table mirrors the only
// order run() can take, so a rejected event is a bug and is logged loudly.
// Cancellation of ctx must not stop the machine from recording failure.
func (b *Bootstrapper) transition(ctx context.Context, event string) {
	if err := b.fsm.Event(context.WithoutCancel(ctx), event); err != nil {
		logging.Error("Invalid bootstrap transition",
			zap.String("event", event),
			zap.String("state", b.fsm.Current()),
			zap.Error(err),
		)
	}
}

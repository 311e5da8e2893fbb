package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/muurk/smartoutlet/internal/accessory"
	"github.com/muurk/smartoutlet/internal/network"
)

// BootRunnerConfig holds configuration for a bootstrap display
type BootRunnerConfig struct {
	Title   string  // e.g., "Network Bootstrap"
	Command string  // e.g., "smartoutlet run"
	Params  []Field // Parameters to display in header
	Output  io.Writer
	Width   int // 0 means detect from the terminal
}

// bootSteps maps each running bootstrap state onto a displayed step
var bootSteps = []struct {
	state network.State
	name  string
}{
	{network.StateScanning, "Scanning for access points"},
	{network.StateConfiguring, "Applying network configuration"},
	{network.StateConnecting, "Connecting to network"},
	{network.StateVerifying, "Verifying gateway reachability"},
}

// BootRunner renders the header → progress → result flow of a network
// bootstrap. Observe is a network.TransitionFunc and drives the steps.
type BootRunner struct {
	config   BootRunnerConfig
	printer  *Printer
	progress *Progress

	mu        sync.Mutex
	current   int
	startTime time.Time
}

// NewBootRunner creates a new runner
func NewBootRunner(config BootRunnerConfig) *BootRunner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	printer := NewPrinter(config.Output)
	if config.Width > 0 {
		printer.SetWidth(config.Width)
	}

	names := make([]string, len(bootSteps))
	for i, s := range bootSteps {
		names[i] = s.name
	}
	progress := NewProgress("", len(bootSteps)).
		SetWidth(printer.Width()).
		SetStepNames(names)

	return &BootRunner{
		config:   config,
		printer:  printer,
		progress: progress,
	}
}

// Begin prints the header and starts the clock
func (r *BootRunner) Begin() {
	r.mu.Lock()
	r.startTime = time.Now()
	r.mu.Unlock()

	r.printer.PrintHeader(r.config.Title, r.config.Command, r.config.Params)
}

// Observe updates the step list for one bootstrap transition
func (r *BootRunner) Observe(from, to network.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch to {
	case network.StateConnected:
		r.finishCurrent(StepComplete, "")
		r.printBar()
	case network.StateFailed:
		r.finishCurrent(StepFailed, "")
		r.printBar()
	default:
		step := stepFor(to)
		if step == 0 {
			return
		}
		r.finishCurrent(StepComplete, "")
		r.current = step
		r.progress.StartStep(step, "")
		r.printer.Print(r.progress.renderStepLine(r.progress.Steps[step-1]) + "\r")
	}
}

func (r *BootRunner) finishCurrent(status StepStatus, message string) {
	if r.current == 0 {
		return
	}
	r.progress.UpdateStep(r.current, status, message)
	r.printer.Println(r.progress.renderStepLine(r.progress.Steps[r.current-1]))
	r.current = 0
}

func (r *BootRunner) printBar() {
	r.printer.Newline()
	r.printer.Println(r.progress.renderProgressBar())
}

func stepFor(state network.State) int {
	for i, s := range bootSteps {
		if s.state == state {
			return i + 1
		}
	}
	return 0
}

// Steps returns a snapshot of the step list
func (r *BootRunner) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Step(nil), r.progress.Steps...)
}

// Online prints the success box for an established network
func (r *BootRunner) Online(handle *network.Handle, extra ...Field) {
	details := []Field{
		{"Network", handle.Config.Client.SSID},
		{"Channel", handle.Config.Client.ChannelString()},
		{"Address", handle.IP.Address.String()},
		{"Gateway", handle.IP.Gateway.String()},
		{"Probes", fmt.Sprintf("%d/%d answered", handle.Report.Received, handle.Report.Transmitted)},
		{"Local AP", fmt.Sprintf("%s (ch %d)", handle.Config.LocalAP.SSID, handle.Config.LocalAP.Channel)},
	}
	details = append(details, extra...)
	details = append(details, Field{"Duration", r.elapsed().String()})

	r.printer.Newline()
	r.printer.PrintSuccess("Outlet online", details)
}

// Fail prints the failure box with hints matched to the error
func (r *BootRunner) Fail(err error) {
	r.printer.Newline()
	r.printer.PrintError(FailureTitle(err), errors.New(network.ShortMessage(err)), Troubleshooting(err))
}

func (r *BootRunner) elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startTime.IsZero() {
		return 0
	}
	return time.Since(r.startTime).Round(time.Millisecond)
}

// FailureTitle names the phase an error came from
func FailureTitle(err error) string {
	switch {
	case isBootstrapError(err):
		return "Network bootstrap failed"
	case accessory.IsRegistrationError(err):
		return "Accessory registration failed"
	default:
		return "Outlet stopped"
	}
}

// Troubleshooting returns the hints for a bootstrap or registration error
func Troubleshooting(err error) []string {
	if hints := network.TroubleshootingHints(err); len(hints) > 0 {
		return hints
	}
	return accessory.TroubleshootingHints(err)
}

func isBootstrapError(err error) bool {
	_, ok := network.KindOf(err)
	return ok
}

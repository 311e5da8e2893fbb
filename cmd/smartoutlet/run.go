package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/actuator"
	"github.com/muurk/smartoutlet/internal/config"
	"github.com/muurk/smartoutlet/internal/device"
	"github.com/muurk/smartoutlet/internal/hapstack"
	"github.com/muurk/smartoutlet/internal/logging"
	"github.com/muurk/smartoutlet/internal/ui"
)

var noAdvertise bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bring the network up and serve the outlet",
	Long: `Bring the network up and serve the outlet accessory.

Startup happens in two phases. Network bootstrap scans for the configured
network, applies a dual-role configuration, connects and verifies that the
gateway answers every reachability probe. Any failure here stops the process
before an accessory is registered.

The control task then binds the output pin and registers the outlet with the
accessory server, which runs until interrupted.

The network credential is read from the config file, then from
SMARTOUTLET_WIFI_CREDENTIAL, then prompted for when stdin is a terminal.`,
	Example: `  # Run with the default config
  smartoutlet run

  # Run without mDNS advertisement and with debug logs
  smartoutlet run --no-advertise --log-level debug`,
	RunE: runOutlet,
}

func init() {
	runCmd.Flags().BoolVar(&noAdvertise, "no-advertise", false, "Do not publish the accessory over mDNS")
	rootCmd.AddCommand(runCmd)
}

func runOutlet(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	if err := config.ResolveCredential(&cfg.Network, os.Getenv, config.TerminalPrompter(os.Stdin, os.Stdout)); err != nil {
		return err
	}
	if err := config.ValidateWiFiCredential(cfg.Network.Credential, cfg.Network.Security); err != nil {
		return err
	}
	if noAdvertise {
		cfg.Stack.Advertise = false
	}

	driver, err := device.SimulatedDriver(cfg)
	if err != nil {
		return fmt.Errorf("failed to build network driver: %w", err)
	}
	pin := actuator.NewSimPin(fmt.Sprintf("gpio%d", cfg.Outlet.Pin))
	stack := hapstack.New(hapstack.Config{
		Host:      cfg.Stack.Host,
		Port:      cfg.Stack.Port,
		Advertise: cfg.Stack.Advertise,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Styled output only goes to a terminal; otherwise logs and the exit error carry it
	var out io.Writer = os.Stdout
	if !ui.IsTerminal() {
		out = io.Discard
	}

	printer := ui.NewPrinter(out)
	runner := ui.NewBootRunner(ui.BootRunnerConfig{
		Title:   "Network Bootstrap",
		Command: "smartoutlet run",
		Params: []ui.Field{
			{Key: "Network", Value: cfg.Network.SSID},
			{Key: "Security", Value: cfg.Network.Security},
			{Key: "Local AP", Value: cfg.Network.LocalAPSSID},
			{Key: "Probes", Value: strconv.Itoa(cfg.Network.ProbeCount)},
		},
		Output: out,
	})
	runner.Begin()

	ctrl, err := bootOutlet(ctx, cfg, device.Deps{
		Driver: driver,
		Pin:    pin,
		Stack:  stack,
	}, runner)
	if err != nil {
		return err
	}

	runner.Online(ctrl.Network(),
		ui.Field{Key: "Accessory", Value: cfg.Accessory.Name},
		ui.Field{Key: "Server", Value: net.JoinHostPort(cfg.Stack.Host, strconv.Itoa(cfg.Stack.Port))},
		ui.Field{Key: "Setup code", Value: cfg.Setup.Code},
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := ctrl.Start(ctx)

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping outlet...")
		cancel()
		return <-errChan
	case err := <-errChan:
		if err != nil {
			logging.Error("Control task stopped", zap.Error(err))
			printer.Newline()
			printer.PrintError(ui.FailureTitle(err), err, ui.Troubleshooting(err))
		}
		return err
	}
}

// bootOutlet brings the network up with runner showing each step. The
// bootstrapper logs its own failure, so the error is only displayed here.
func bootOutlet(ctx context.Context, cfg *config.Config, deps device.Deps, runner *ui.BootRunner) (*device.Controller, error) {
	deps.OnTransition = runner.Observe
	ctrl, err := device.Boot(ctx, cfg, deps)
	if err != nil {
		runner.Fail(err)
		return nil, err
	}
	return ctrl, nil
}

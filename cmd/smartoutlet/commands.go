package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/smartoutlet/internal/config"
	"github.com/muurk/smartoutlet/internal/discovery"
	"github.com/muurk/smartoutlet/internal/hapstack"
	"github.com/muurk/smartoutlet/internal/ui"
)

// Command flags
var (
	initSSID    string
	initForce   bool
	scanTimeout int
	outletAddr  string
	outletMatch string
)

func init() {
	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(switchCmd)

	initConfigCmd.Flags().StringVar(&initSSID, "ssid", "", "Network to join (required)")
	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	_ = initConfigCmd.MarkFlagRequired("ssid")

	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")

	for _, c := range []*cobra.Command{watchCmd, switchCmd} {
		c.Flags().StringVar(&outletAddr, "addr", "", "Accessory server host:port (skips discovery)")
		c.Flags().StringVar(&outletMatch, "outlet", "", "Device id or name to discover (default: first found)")
		c.Flags().IntVar(&scanTimeout, "timeout", 5, "Discovery timeout in seconds")
	}
}

// configFile returns --config or the default location
func configFile() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// loadConfig loads and validates the config file
func loadConfig() (*config.Config, string, error) {
	path, err := configFile()
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, path, fmt.Errorf("invalid configuration in %s:\n%s", path, config.FormatValidationErrors(errs))
	}
	return cfg, path, nil
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the config file",
	Long: `Load the config file and report every validation problem.

The network credential may be absent from the file; run resolves it from
the environment or a prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer := ui.NewPrinter(os.Stdout)

		cfg, path, err := loadConfig()
		if err != nil {
			printer.PrintError("Configuration invalid", err, []string{
				"Run 'smartoutlet init-config --ssid <network>' to create a fresh file",
			})
			return errors.New("configuration invalid")
		}

		credential := "in file"
		if cfg.Network.Credential == "" {
			credential = "from " + config.CredentialEnv + " or prompt"
		}
		if cfg.Network.Security == config.SecurityOpen {
			credential = "not required"
		}

		printer.PrintSuccess("Configuration valid", []ui.Field{
			{Key: "File", Value: path},
			{Key: "Network", Value: cfg.Network.SSID},
			{Key: "Credential", Value: credential},
			{Key: "Local AP", Value: fmt.Sprintf("%s (fallback ch %d)", cfg.Network.LocalAPSSID, cfg.Network.FallbackChannel)},
			{Key: "Accessory", Value: cfg.Accessory.Name},
			{Key: "Pin", Value: strconv.Itoa(cfg.Outlet.Pin)},
			{Key: "Policy", Value: cfg.Outlet.UnboundWritePolicy},
		})
		return nil
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default config file",
	Example: `  smartoutlet init-config --ssid home
  smartoutlet init-config --ssid home --config ./outlet.yaml --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFile()
		if err != nil {
			return err
		}

		force := initForce
		if _, statErr := os.Stat(path); statErr == nil && !force && term.IsTerminal(int(os.Stdin.Fd())) {
			force = ui.Confirm(os.Stdin, os.Stdout, "Overwrite config", []string{
				path + " already exists",
				"It will be replaced with defaults for " + initSSID,
			})
			if !force {
				return nil
			}
		}

		if err := config.WriteDefault(path, initSSID, force); err != nil {
			return err
		}

		ui.NewPrinter(os.Stdout).PrintSuccess("Config written", []ui.Field{
			{Key: "File", Value: path},
			{Key: "Network", Value: initSSID},
			{Key: "Next", Value: "set " + config.CredentialEnv + " and run 'smartoutlet run'"},
		})
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for outlets on the network",
	Long: `Scan for outlet accessories using mDNS/DNS-SD discovery.

Only accessories that advertise the outlet category are listed.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(os.Stdout)
	printer.PrintPleaseWait("Scanning for outlets", fmt.Sprintf("%ds", scanTimeout))

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second

	outlets, err := scanner.ScanForOutlets(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(outlets) == 0 {
		printer.PrintWarning("No outlets found", []ui.Field{
			{Key: "Timeout", Value: scanner.Timeout.String()},
			{Key: "Hint", Value: "check the outlet runs with stack.advertise enabled"},
		})
		return nil
	}

	for i, o := range outlets {
		state := "unpaired"
		if o.Paired {
			state = "paired"
		}
		printer.Println(fmt.Sprintf("%d. %s", i+1, o.Name))
		printer.Println(fmt.Sprintf("   Device:  %s (%s)", o.DeviceID, state))
		printer.Println(fmt.Sprintf("   Model:   %s", o.Model))
		printer.Println(fmt.Sprintf("   Address: %s", o.Addr()))
		printer.Newline()
	}
	printer.Println("Use 'smartoutlet watch --addr <address>' to follow and switch an outlet")
	return nil
}

// resolveOutlet returns the accessory server address from --addr or mDNS
func resolveOutlet(ctx context.Context) (string, error) {
	if outletAddr != "" {
		return outletAddr, nil
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second

	if outletMatch != "" {
		o, err := scanner.WaitForOutlet(ctx, outletMatch)
		if err != nil {
			return "", err
		}
		return o.Addr(), nil
	}

	outlets, err := scanner.ScanForOutlets(ctx)
	if err != nil {
		return "", fmt.Errorf("scan failed: %w", err)
	}
	if len(outlets) == 0 {
		return "", errors.New("no outlets found (use --addr to connect directly)")
	}
	return outlets[0].Addr(), nil
}

// connectOutlet locates the outlet's On characteristic
func connectOutlet(ctx context.Context) (*hapstack.Client, hapstack.CharacteristicID, string, error) {
	addr, err := resolveOutlet(ctx)
	if err != nil {
		return nil, hapstack.CharacteristicID{}, "", err
	}

	client := hapstack.NewClient(addr)
	accs, err := client.Accessories(ctx)
	if err != nil {
		return nil, hapstack.CharacteristicID{}, addr, err
	}
	id, err := hapstack.FindOutlet(accs)
	if err != nil {
		return nil, hapstack.CharacteristicID{}, addr, err
	}
	return client, id, addr, nil
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow and switch an outlet interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		client, id, addr, err := connectOutlet(ctx)
		if err != nil {
			return err
		}

		events, err := client.Subscribe(ctx)
		if err != nil {
			return err
		}

		updates := make(chan bool)
		go func() {
			defer close(updates)
			for v := range events {
				if v.AID != id.AID || v.IID != id.IID {
					continue
				}
				on, ok := v.Value.(bool)
				if !ok {
					continue
				}
				select {
				case updates <- on:
				case <-ctx.Done():
					return
				}
			}
		}()

		return ui.RunWatch(ui.WatchConfig{
			Name:    "smartoutlet watch",
			Addr:    addr,
			Updates: updates,
			Toggle: func(on bool) error {
				return client.Write(ctx, id, on)
			},
		})
	},
}

var switchCmd = &cobra.Command{
	Use:       "switch [on|off|status]",
	Short:     "Switch an outlet or print its state",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, id, addr, err := connectOutlet(ctx)
		if err != nil {
			return err
		}

		switch strings.ToLower(args[0]) {
		case "on":
			err = client.Write(ctx, id, true)
		case "off":
			err = client.Write(ctx, id, false)
		case "status":
		default:
			return fmt.Errorf("unknown action %q (want on, off or status)", args[0])
		}
		if err != nil {
			return err
		}

		on, err := client.ReadBool(ctx, id)
		if err != nil {
			return err
		}
		state := "off"
		if on {
			state = "on"
		}
		fmt.Printf("%s %s: %s\n", addr, id, state)
		return nil
	},
}

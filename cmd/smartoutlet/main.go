// Smartoutlet runs a network-connected single-outlet accessory.
//
// On start it brings the network up in dual role (client plus a local
// access point), verifies the gateway answers every reachability probe,
// then registers an outlet accessory whose On characteristic drives one
// output pin. Controllers switch the outlet through the accessory server.
//
// Usage:
//
//	smartoutlet [command] [flags]
//
// See 'smartoutlet --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/smartoutlet/internal/logging"
	"github.com/muurk/smartoutlet/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "smartoutlet",
	Short: "Network-connected smart outlet",
	Long: `A network-connected single-outlet accessory.

The run command joins the configured network, hosts a local access point,
verifies the gateway is reachable and then serves an outlet accessory
whose On state drives one output pin.

Logging is silent unless --log-level or SMARTOUTLET_LOG_LEVEL is set.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	Example: `  # Write a starting config for your network
  smartoutlet init-config --ssid home

  # Check it
  smartoutlet check-config

  # Run the outlet
  smartoutlet run

  # Find outlets on the LAN and switch one
  smartoutlet scan
  smartoutlet watch`,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/smartoutlet/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smartoutlet %s (commit: %s)\n", version.Version, version.Commit)
	},
}

// Package ui provides terminal UI components for the smartoutlet CLI.
//
// Most components follow a "run once and exit" pattern: they render a
// header, a step list and a result box and never wait for input. The
// exception is the watch view, a Bubble Tea program that follows the
// outlet's state and lets the user switch it.
//
// # Components
//
//   - Header: command banner with title and parameters
//   - Progress: progress bar with step list
//   - Result: success, failure and warning boxes
//   - BootRunner: drives Progress from network bootstrap transitions
//   - WatchModel: interactive outlet view
//
// # Usage Pattern
//
//	runner := ui.NewBootRunner(ui.BootRunnerConfig{
//	    Title:   "Network Bootstrap",
//	    Command: "smartoutlet run",
//	    Params:  []ui.Field{{Key: "Network", Value: cfg.Network.SSID}},
//	})
//	runner.Begin()
//	ctrl, err := device.Boot(ctx, cfg, device.Deps{OnTransition: runner.Observe, ...})
//	if err != nil {
//	    runner.Fail(err)
//	}
//
// # Logging Integration
//
// Logging is controlled via the SMARTOUTLET_LOG_LEVEL environment variable.
// When unset, zap is silent so the UI output stays clean.
package ui

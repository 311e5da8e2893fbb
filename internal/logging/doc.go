// Package logging provides structured logging for the smart outlet controller.
//
// This package wraps a zap logger with convenience functions for the events the
// controller cares about: network bootstrap transitions, reachability probes,
// and characteristic writes arriving from the accessory stack.
//
// # Log Levels
//
//   - Debug: Request bodies, raw bytes, status dumps
//   - Info: State transitions, writes, advertisement
//   - Warn: Dropped writes, probe loss
//   - Error: Fatal startup failures
//
// # Structured Logging
//
//	logging.Info("Outlet bound",
//	    zap.String("pin", "gpio5"),
//	    zap.Bool("initial", false),
//	)
//
//	logging.LogTransition("scanning", "configuring")
//	logging.LogProbe("192.168.1.1", 5, 5)
//	logging.LogWrite(1, 10, true, 0)
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and SMARTOUTLET_LOG_LEVEL is unset the logger is a
// no-op, so styled CLI output is not interleaved with log lines.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned. Initialize and SetLogger must be called before goroutines start.
package logging

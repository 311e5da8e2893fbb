// Package config loads and validates the smartoutlet device configuration.
//
// The configuration is a single YAML file describing the home network, the
// accessory identity published to controllers, the pairing setup info, the
// outlet pin and the in-process stack listener.
//
// # Configuration File Location
//
// Unless overridden with --config the file is read from:
//   - Linux: $XDG_CONFIG_HOME/smartoutlet/config.yaml or $HOME/.config/smartoutlet/config.yaml
//   - macOS: $HOME/.config/smartoutlet/config.yaml
//   - Windows: %LOCALAPPDATA%\smartoutlet\config.yaml
//
// # Credentials
//
// The network credential may be left out of the file. ResolveCredential then
// falls back to the SMARTOUTLET_WIFI_CREDENTIAL environment variable and
// finally to an interactive prompt when stdin is a terminal.
//
// # Usage Example
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	if errs := cfg.Validate(); len(errs) > 0 {
//	    return errors.New(config.FormatValidationErrors(errs))
//	}
package config

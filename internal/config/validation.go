package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError describes one invalid configuration field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var (
	setupCodePattern = regexp.MustCompile(`^\d{3}-\d{2}-\d{3}$`)
	setupIDPattern   = regexp.MustCompile(`^[0-9A-Z]{4}$`)
)

// Setup codes controllers refuse to pair with
var trivialSetupCodes = map[string]bool{
	"000-00-000": true,
	"111-11-111": true,
	"222-22-222": true,
	"333-33-333": true,
	"444-44-444": true,
	"555-55-555": true,
	"666-66-666": true,
	"777-77-777": true,
	"888-88-888": true,
	"999-99-999": true,
	"123-45-678": true,
	"876-54-321": true,
}

// ValidateWiFiSSID validates a WiFi SSID.
// SSIDs must be non-empty and <= 32 bytes.
func ValidateWiFiSSID(ssid string) error {
	if ssid == "" {
		return newValidationError("network.ssid", "cannot be empty")
	}
	if len(ssid) > 32 {
		return newValidationError("network.ssid", "too long (max 32 bytes): %d bytes", len(ssid))
	}
	return nil
}

// ValidateWiFiSecurityType accepts "WPA2" and "OPEN"
func ValidateWiFiSecurityType(securityType string) error {
	if securityType != SecurityWPA2 && securityType != SecurityOpen {
		return newValidationError("network.security", "must be 'WPA2' or 'OPEN', got '%s'", securityType)
	}
	return nil
}

// ValidateWiFiCredential validates a credential against the security type.
// An empty WPA2 credential is allowed here since it may be resolved later.
func ValidateWiFiCredential(credential, securityType string) error {
	switch securityType {
	case SecurityWPA2:
		if credential == "" {
			return nil
		}
		if len(credential) < 8 {
			return newValidationError("network.credential", "WPA2 credential too short (min 8 chars): %d chars", len(credential))
		}
		if len(credential) > 63 {
			return newValidationError("network.credential", "WPA2 credential too long (max 63 chars): %d chars", len(credential))
		}
	case SecurityOpen:
		if credential != "" {
			return newValidationError("network.credential", "must be empty for open networks")
		}
	}
	return nil
}

// ValidateChannel validates a 2.4GHz channel number
func ValidateChannel(field string, channel uint8) error {
	if channel < 1 || channel > 13 {
		return newValidationError(field, "channel must be 1-13, got %d", channel)
	}
	return nil
}

// ValidateSetupCode checks the NNN-NN-NNN format and rejects trivial codes
func ValidateSetupCode(code string) error {
	if !setupCodePattern.MatchString(code) {
		return newValidationError("setup.code", "must have the form NNN-NN-NNN, got '%s'", code)
	}
	if trivialSetupCodes[code] {
		return newValidationError("setup.code", "'%s' is too simple and will be refused by controllers", code)
	}
	return nil
}

// ValidateSetupID checks for exactly four characters from 0-9 and A-Z
func ValidateSetupID(id string) error {
	if !setupIDPattern.MatchString(id) {
		return newValidationError("setup.id", "must be 4 characters from 0-9 and A-Z, got '%s'", id)
	}
	return nil
}

// ValidateWritePolicy checks the unbound write policy name
func ValidateWritePolicy(policy string) error {
	if policy != PolicyReportSuccess && policy != PolicyReportFailure {
		return newValidationError("outlet.unbound_write_policy", "must be '%s' or '%s', got '%s'",
			PolicyReportSuccess, PolicyReportFailure, policy)
	}
	return nil
}

// Validate validates the complete configuration.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	n := c.Network
	add(ValidateWiFiSSID(n.SSID))
	add(ValidateWiFiSecurityType(n.Security))
	add(ValidateWiFiCredential(n.Credential, n.Security))
	if n.LocalAPSSID == "" {
		add(newValidationError("network.local_ap_ssid", "cannot be empty"))
	} else if len(n.LocalAPSSID) > 32 {
		add(newValidationError("network.local_ap_ssid", "too long (max 32 bytes): %d bytes", len(n.LocalAPSSID)))
	}
	add(ValidateChannel("network.fallback_channel", n.FallbackChannel))
	if n.ProbeCount < 1 || n.ProbeCount > 64 {
		add(newValidationError("network.probe_count", "must be 1-64, got %d", n.ProbeCount))
	}

	a := c.Accessory
	for _, f := range []struct{ field, value string }{
		{"accessory.name", a.Name},
		{"accessory.service_name", a.ServiceName},
		{"accessory.model", a.Model},
		{"accessory.manufacturer", a.Manufacturer},
		{"accessory.serial", a.Serial},
		{"accessory.firmware_rev", a.FirmwareRev},
		{"accessory.hardware_rev", a.HardwareRev},
		{"accessory.protocol_version", a.ProtocolVersion},
	} {
		if strings.TrimSpace(f.value) == "" {
			add(newValidationError(f.field, "cannot be empty"))
		}
	}
	if a.Category <= 0 {
		add(newValidationError("accessory.category", "must be a positive category code, got %d", a.Category))
	}

	add(ValidateSetupCode(c.Setup.Code))
	add(ValidateSetupID(c.Setup.ID))

	if c.Outlet.Pin < 0 {
		add(newValidationError("outlet.pin", "must not be negative, got %d", c.Outlet.Pin))
	}
	add(ValidateWritePolicy(c.Outlet.UnboundWritePolicy))

	if c.Stack.Port <= 0 || c.Stack.Port > 65535 {
		add(newValidationError("stack.port", "must be 1-65535, got %d", c.Stack.Port))
	}

	for i, ap := range c.Simulation.AccessPoints {
		add(ValidateChannel(fmt.Sprintf("simulation.access_points[%d].channel", i), ap.Channel))
	}
	if c.Simulation.ProbeLoss < 0 {
		add(newValidationError("simulation.probe_loss", "must not be negative, got %d", c.Simulation.ProbeLoss))
	}

	return errs
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errors []error) string {
	if len(errors) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n", len(errors)))

	for i, err := range errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}

	return sb.String()
}

package config

import "time"

// Security types supported by the client role
const (
	SecurityWPA2 = "WPA2"
	SecurityOpen = "OPEN"
)

// Unbound write policies
const (
	// PolicyReportSuccess acknowledges writes that arrive before the outlet
	// pin is bound, even though nothing was driven
	PolicyReportSuccess = "report-success"

	// PolicyReportFailure answers such writes with a communication failure
	PolicyReportFailure = "report-failure"
)

// CategoryOutlet is the accessory category code for an outlet
const CategoryOutlet = 7

// Config is the full device configuration file
type Config struct {
	Version    int              `yaml:"version"`
	Network    NetworkConfig    `yaml:"network"`
	Accessory  AccessoryConfig  `yaml:"accessory"`
	Setup      SetupConfig      `yaml:"setup"`
	Outlet     OutletConfig     `yaml:"outlet"`
	Stack      StackConfig      `yaml:"stack"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// NetworkConfig describes the home network and the local access point
type NetworkConfig struct {
	SSID            string `yaml:"ssid"`
	Credential      string `yaml:"credential,omitempty"` // May be supplied by env or prompt instead
	Security        string `yaml:"security"`             // "WPA2" or "OPEN"
	LocalAPSSID     string `yaml:"local_ap_ssid"`
	FallbackChannel uint8  `yaml:"fallback_channel"` // Local AP channel when the SSID is not seen
	ProbeCount      int    `yaml:"probe_count"`
}

// AccessoryConfig is the identity published to controllers
type AccessoryConfig struct {
	Name            string `yaml:"name"`
	ServiceName     string `yaml:"service_name"`
	Model           string `yaml:"model"`
	Manufacturer    string `yaml:"manufacturer"`
	Serial          string `yaml:"serial"`
	FirmwareRev     string `yaml:"firmware_rev"`
	HardwareRev     string `yaml:"hardware_rev"`
	ProtocolVersion string `yaml:"protocol_version"`
	Category        int    `yaml:"category"`
}

// SetupConfig is the pairing setup information
type SetupConfig struct {
	Code string `yaml:"code"` // NNN-NN-NNN
	ID   string `yaml:"id"`   // 4 characters, 0-9 A-Z
}

// OutletConfig describes the output pin
type OutletConfig struct {
	Pin                int    `yaml:"pin"`
	UnboundWritePolicy string `yaml:"unbound_write_policy"`
}

// StackConfig configures the in-process accessory stack listener
type StackConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Advertise bool   `yaml:"advertise"` // Publish _hap._tcp over mDNS
}

// SimulationConfig scripts the simulated radio used on host builds
type SimulationConfig struct {
	AccessPoints  []SimAccessPoint `yaml:"access_points"`
	Hidden        bool             `yaml:"hidden"`
	Address       string           `yaml:"address"`
	Gateway       string           `yaml:"gateway"`
	Subnet        string           `yaml:"subnet"`
	FailScan      bool             `yaml:"fail_scan,omitempty"`
	RejectConfig  bool             `yaml:"reject_config,omitempty"`
	FailConnect   bool             `yaml:"fail_connect,omitempty"`
	FailLocalAP   bool             `yaml:"fail_local_ap,omitempty"`
	WithholdIP    bool             `yaml:"withhold_ip,omitempty"`
	ProbeLoss     int              `yaml:"probe_loss,omitempty"`
	ProbeInterval time.Duration    `yaml:"probe_interval,omitempty"`
}

// SimAccessPoint is one entry of the simulated scan list
type SimAccessPoint struct {
	SSID    string `yaml:"ssid"`
	Channel uint8  `yaml:"channel"`
}

// Default returns a configuration populated with the stock identity and
// network defaults. The SSID is left empty and must be provided.
func Default() *Config {
	return &Config{
		Version: 1,
		Network: NetworkConfig{
			Security:        SecurityWPA2,
			LocalAPSSID:     "aptest",
			FallbackChannel: 1,
			ProbeCount:      5,
		},
		Accessory: AccessoryConfig{
			Name:            "Smart-Outlet",
			ServiceName:     "My Smart Outlet",
			Model:           "Esp32",
			Manufacturer:    "Espressif",
			Serial:          "111122334455",
			FirmwareRev:     "1.0.0",
			HardwareRev:     "0.1.0",
			ProtocolVersion: "1.1.0",
			Category:        CategoryOutlet,
		},
		Setup: SetupConfig{
			Code: "111-22-333",
			ID:   "ES32",
		},
		Outlet: OutletConfig{
			Pin:                5,
			UnboundWritePolicy: PolicyReportSuccess,
		},
		Stack: StackConfig{
			Host:      "0.0.0.0",
			Port:      5556,
			Advertise: true,
		},
		Simulation: SimulationConfig{
			Address:       "192.168.1.50",
			Gateway:       "192.168.1.1",
			Subnet:        "192.168.1.0/24",
			ProbeInterval: 100 * time.Millisecond,
		},
	}
}

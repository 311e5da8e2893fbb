package device

import (
	"fmt"
	"net/netip"

	"github.com/muurk/smartoutlet/internal/config"
	"github.com/muurk/smartoutlet/internal/network"
	"github.com/muurk/smartoutlet/internal/network/simdriver"
)

// simulatedChannel is where the configured network appears when the
// simulation lists no access points
const simulatedChannel = 6

// SimulatedDriver builds the simulated radio described by the config
func SimulatedDriver(cfg *config.Config) (*simdriver.Driver, error) {
	sim := cfg.Simulation

	address, err := netip.ParseAddr(sim.Address)
	if err != nil {
		return nil, fmt.Errorf("simulation.address: %w", err)
	}
	gateway, err := netip.ParseAddr(sim.Gateway)
	if err != nil {
		return nil, fmt.Errorf("simulation.gateway: %w", err)
	}
	subnet, err := netip.ParsePrefix(sim.Subnet)
	if err != nil {
		return nil, fmt.Errorf("simulation.subnet: %w", err)
	}

	aps := make([]network.AccessPoint, 0, len(sim.AccessPoints))
	for _, ap := range sim.AccessPoints {
		aps = append(aps, network.AccessPoint{SSID: ap.SSID, Channel: ap.Channel})
	}
	if len(aps) == 0 {
		aps = append(aps, network.AccessPoint{SSID: cfg.Network.SSID, Channel: simulatedChannel})
	}

	return simdriver.New(simdriver.Config{
		AccessPoints:  aps,
		Hidden:        sim.Hidden,
		Address:       address,
		Gateway:       gateway,
		Subnet:        subnet,
		FailScan:      sim.FailScan,
		RejectConfig:  sim.RejectConfig,
		FailConnect:   sim.FailConnect,
		FailLocalAP:   sim.FailLocalAP,
		WithholdIP:    sim.WithholdIP,
		ProbeLoss:     sim.ProbeLoss,
		ProbeInterval: sim.ProbeInterval,
	}), nil
}

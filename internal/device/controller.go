package device

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/accessory"
	"github.com/muurk/smartoutlet/internal/actuator"
	"github.com/muurk/smartoutlet/internal/config"
	"github.com/muurk/smartoutlet/internal/logging"
	"github.com/muurk/smartoutlet/internal/network"
)

// Deps are the external collaborators of a controller
type Deps struct {
	Driver       network.Driver
	Pin          actuator.OutputPin
	Stack        accessory.Stack
	OnTransition network.TransitionFunc
}

// Controller owns everything a running outlet needs
type Controller struct {
	cfg     *config.Config
	network *network.Handle
	guard   *actuator.Guard
	pin     actuator.OutputPin
	stack   accessory.Stack
	policy  accessory.UnboundPolicy
}

// New creates a controller around an already established network handle
func New(cfg *config.Config, handle *network.Handle, pin actuator.OutputPin, stack accessory.Stack) (*Controller, error) {
	if handle == nil {
		return nil, errors.New("network handle is required")
	}
	if pin == nil || stack == nil {
		return nil, errors.New("pin and stack are required")
	}

	policy, err := accessory.ParseUnboundPolicy(cfg.Outlet.UnboundWritePolicy)
	if err != nil {
		return nil, err
	}

	return &Controller{
		cfg:     cfg,
		network: handle,
		guard:   actuator.NewGuard(),
		pin:     pin,
		stack:   stack,
		policy:  policy,
	}, nil
}

// Boot runs network bootstrap once and, on success, builds the controller.
// On failure no controller exists and nothing is registered.
func Boot(ctx context.Context, cfg *config.Config, deps Deps) (*Controller, error) {
	handle, err := Bootstrap(ctx, cfg, deps.Driver, deps.OnTransition)
	if err != nil {
		return nil, err
	}
	return New(cfg, handle, deps.Pin, deps.Stack)
}

// Bootstrap brings the network up with the configured credentials
func Bootstrap(ctx context.Context, cfg *config.Config, driver network.Driver, observe network.TransitionFunc) (*network.Handle, error) {
	b := network.NewBootstrapper(driver, network.Options{
		LocalAPSSID:     cfg.Network.LocalAPSSID,
		FallbackChannel: cfg.Network.FallbackChannel,
		ProbeCount:      cfg.Network.ProbeCount,
		OnTransition:    observe,
	})
	return b.BringUp(ctx, network.Credentials{
		SSID:       cfg.Network.SSID,
		Credential: cfg.Network.Credential,
	})
}

// Identity maps the configured identity onto the accessory form
func Identity(cfg *config.Config) accessory.Identity {
	a := cfg.Accessory
	return accessory.Identity{
		Name:            a.Name,
		Model:           a.Model,
		Manufacturer:    a.Manufacturer,
		Serial:          a.Serial,
		FirmwareRev:     a.FirmwareRev,
		HardwareRev:     a.HardwareRev,
		ProtocolVersion: a.ProtocolVersion,
		Category:        accessory.Category(a.Category),
	}
}

// Guard returns the controller's actuator guard
func (c *Controller) Guard() *actuator.Guard {
	return c.guard
}

// Network returns the live network handle
func (c *Controller) Network() *network.Handle {
	return c.network
}

// Run is the control task. It binds the pin, registers the accessory and
// hands the goroutine to the stack. It returns only when ctx is cancelled,
// registration fails or the stack's run loop dies.
func (c *Controller) Run(ctx context.Context) error {
	c.guard.Bind(c.pin)

	logging.Info("Control task started",
		zap.String("address", c.network.IP.Address.String()),
		zap.String("policy", c.policy.String()),
	)

	err := accessory.Register(ctx, c.stack, accessory.Registration{
		Identity:    Identity(c.cfg),
		ServiceName: c.cfg.Accessory.ServiceName,
		Setup: accessory.SetupInfo{
			Code: c.cfg.Setup.Code,
			ID:   c.cfg.Setup.ID,
		},
		Handler: accessory.NewOutletHandler(c.guard, c.policy),
	})
	if err != nil {
		return fmt.Errorf("control task: %w", err)
	}
	return nil
}

// Start spawns the control task. The channel receives Run's result.
func (c *Controller) Start(ctx context.Context) <-chan error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- c.Run(ctx)
	}()
	return errChan
}

package actuator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/logging"
)

// Guard serializes access to the outlet's output pin.
type Guard struct {
	mu    sync.Mutex
	pin   OutputPin
	on    bool
	bound bool
}

// NewGuard creates an unbound guard
func NewGuard() *Guard {
	return &Guard{}
}

// Bind installs the output pin, drives it low and commits false.
// It must be called exactly once; a second call panics.
func (g *Guard) Bind(pin OutputPin) {
	if pin == nil {
		panic("actuator: Bind called with nil pin")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.bound {
		panic("actuator: Bind called twice")
	}

	pin.SetLow()
	g.pin = pin
	g.on = false
	g.bound = true

	logging.Info("Outlet pin bound", zap.Bool("on", false))
}

// Set drives the pin high for true and low for false.
// Before Bind the write is dropped and an *ActuatorError is returned;
// no pin is touched.
func (g *Guard) Set(value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.bound {
		logging.Warn("Outlet write before pin bound, dropping", zap.Bool("value", value))
		return &ActuatorError{Kind: NotInitialized, Value: value}
	}

	if value {
		g.pin.SetHigh()
	} else {
		g.pin.SetLow()
	}
	g.on = value

	return nil
}

// Get returns the last committed value. ok is false until Bind.
func (g *Guard) Get() (value bool, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.on, g.bound
}

// IsInitialized reports whether a pin has been bound
func (g *Guard) IsInitialized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bound
}

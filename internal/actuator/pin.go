package actuator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/logging"
)

// OutputPin is a digital output obtained once at startup.
// Board support packages provide the real implementation.
type OutputPin interface {
	SetHigh()
	SetLow()
}

// SimPin is an in-memory OutputPin for host builds and tests.
// It records the current level and the number of transitions driven.
type SimPin struct {
	Name string

	mu     sync.Mutex
	high   bool
	writes int
}

// NewSimPin creates a simulated pin, initially low
func NewSimPin(name string) *SimPin {
	return &SimPin{Name: name}
}

// SetHigh drives the pin high
func (p *SimPin) SetHigh() { p.set(true) }

// SetLow drives the pin low
func (p *SimPin) SetLow() { p.set(false) }

func (p *SimPin) set(high bool) {
	p.mu.Lock()
	p.high = high
	p.writes++
	p.mu.Unlock()

	logging.Debug("Pin driven",
		zap.String("pin", p.Name),
		zap.Bool("high", high),
	)
}

// High reports the current level
func (p *SimPin) High() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high
}

// Writes returns how many times the pin has been driven
func (p *SimPin) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

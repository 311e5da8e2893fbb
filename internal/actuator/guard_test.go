package actuator

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingPin records every level it is driven to and flags overlapping writes.
type recordingPin struct {
	inFlight atomic.Int32
	overlap  atomic.Bool

	mu     sync.Mutex
	levels []bool
}

func (p *recordingPin) SetHigh() { p.drive(true) }
func (p *recordingPin) SetLow()  { p.drive(false) }

func (p *recordingPin) drive(high bool) {
	if p.inFlight.Add(1) > 1 {
		p.overlap.Store(true)
	}
	// Widen the window a racing writer would need
	time.Sleep(10 * time.Microsecond)

	p.mu.Lock()
	p.levels = append(p.levels, high)
	p.mu.Unlock()

	p.inFlight.Add(-1)
}

func (p *recordingPin) last() (bool, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.levels) == 0 {
		return false, 0
	}
	return p.levels[len(p.levels)-1], len(p.levels)
}

// levelDuring reports whether value was the pin level after any write in
// the window [from, to] of the write history
func (p *recordingPin) levelDuring(value bool, from, to int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for m := max(from, 1); m <= to && m <= len(p.levels); m++ {
		if p.levels[m-1] == value {
			return true
		}
	}
	return false
}

func TestGuard_UnboundSetIsNoOp(t *testing.T) {
	g := NewGuard()

	err := g.Set(true)
	if err == nil {
		t.Fatal("Set() before Bind should report NotInitialized")
	}
	if !IsNotInitialized(err) {
		t.Errorf("Set() error = %v, want NotInitialized", err)
	}

	if _, ok := g.Get(); ok {
		t.Error("Get() ok = true before Bind")
	}
	if g.IsInitialized() {
		t.Error("IsInitialized() = true before Bind")
	}
}

func TestGuard_UnboundSetDoesNotTouchPin(t *testing.T) {
	g := NewGuard()
	pin := NewSimPin("gpio5")

	_ = g.Set(true)
	g.Bind(pin)

	if pin.Writes() != 1 {
		t.Errorf("pin writes = %d, want 1 (Bind only)", pin.Writes())
	}
	if pin.High() {
		t.Error("pin should be low after Bind; the early write must be dropped")
	}
}

func TestGuard_BindDrivesLow(t *testing.T) {
	g := NewGuard()
	pin := NewSimPin("gpio5")
	pin.SetHigh()

	g.Bind(pin)

	on, ok := g.Get()
	if !ok || on {
		t.Errorf("Get() = (%v, %v), want (false, true)", on, ok)
	}
	if pin.High() {
		t.Error("Bind should drive the pin low")
	}
}

func TestGuard_BindTwicePanics(t *testing.T) {
	g := NewGuard()
	g.Bind(NewSimPin("a"))

	defer func() {
		if recover() == nil {
			t.Error("second Bind should panic")
		}
	}()
	g.Bind(NewSimPin("b"))
}

func TestGuard_SetAppliesLevel(t *testing.T) {
	tests := []struct {
		name  string
		value bool
	}{
		{"on", true},
		{"off", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard()
			pin := NewSimPin("gpio5")
			g.Bind(pin)

			if err := g.Set(tt.value); err != nil {
				t.Fatalf("Set(%v) error = %v", tt.value, err)
			}

			on, ok := g.Get()
			if !ok || on != tt.value {
				t.Errorf("Get() = (%v, %v), want (%v, true)", on, ok, tt.value)
			}
			if pin.High() != tt.value {
				t.Errorf("pin high = %v, want %v", pin.High(), tt.value)
			}
		})
	}
}

func TestGuard_ConcurrentSetsAreSerialized(t *testing.T) {
	g := NewGuard()
	pin := &recordingPin{}
	g.Bind(pin)

	const writers = 32
	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Concurrent reader: every value Get returns must be the pin level at
	// some point between the surrounding reads of the pin history.
	var readerErr atomic.Value
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, before := pin.last()
			on, ok := g.Get()
			_, after := pin.last()
			if ok && !pin.levelDuring(on, before, after) {
				readerErr.Store("Get() returned a value the pin was not driven to")
			}
		}
	}()

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(v bool) {
			defer wg.Done()
			if err := g.Set(v); err != nil {
				t.Errorf("Set() error = %v", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()
	close(stop)

	if pin.overlap.Load() {
		t.Fatal("two writers drove the pin at the same time")
	}
	if msg := readerErr.Load(); msg != nil {
		t.Fatal(msg)
	}

	level, n := pin.last()
	if n != writers+1 {
		t.Errorf("pin writes = %d, want %d", n, writers+1)
	}
	on, _ := g.Get()
	if on != level {
		t.Errorf("Get() = %v, want last applied value %v", on, level)
	}
}

func TestActuatorError_Error(t *testing.T) {
	err := &ActuatorError{Kind: NotInitialized, Value: true}
	if err.Error() != "actuator not initialized: write dropped" {
		t.Errorf("Error() = %q", err.Error())
	}
	if NotInitialized.String() != "Not Initialized" {
		t.Errorf("String() = %q", NotInitialized.String())
	}
}

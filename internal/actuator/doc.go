// Package actuator owns the logical state of the outlet's physical output.
//
// A Guard wraps one OutputPin behind a mutex. The control task binds the pin
// once at startup; after that, writes may arrive concurrently from the
// accessory stack's callback goroutines. Every write holds the lock from the
// moment the new value is read until the pin has been driven, so observers
// only ever see fully applied values.
//
//	guard := actuator.NewGuard()
//	guard.Bind(pin) // drives the pin low, commits false
//
//	if err := guard.Set(true); err != nil {
//	    // only possible before Bind: the write was dropped
//	}
//
//	on, ok := guard.Get()
//
// Writes issued before Bind are dropped without touching any pin and report
// an *ActuatorError of kind NotInitialized. Calling Bind twice panics.
package actuator

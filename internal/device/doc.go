// Package device wires the outlet together.
//
// A Controller is the explicit context object for a running outlet: it owns
// the live network handle, the actuator guard, the output pin and the
// accessory stack. Boot brings the network up and builds the Controller;
// Start spawns the control task, which binds the pin, registers the
// accessory and then belongs to the stack.
package device

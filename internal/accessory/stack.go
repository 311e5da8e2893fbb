package accessory

import "context"

// Stack is the accessory-protocol stack the outlet is published through.
// Methods other than Start are called once each, in the order Register
// calls them.
type Stack interface {
	Init(ctx context.Context) error
	CreateAccessory(id Identity) (*AccessoryDescriptor, error)
	CreateService(tmpl ServiceDescriptor) (*ServiceDescriptor, error)
	SetName(svc *ServiceDescriptor, name string) error
	SetWriteCallback(svc *ServiceDescriptor, cb WriteCallback) error
	AttachService(acc *AccessoryDescriptor, svc *ServiceDescriptor) error
	RegisterAccessory(acc *AccessoryDescriptor) error
	ProvisionSetup(setup SetupInfo) error

	// Start runs the stack. It does not return in normal operation; it
	// returns when ctx is cancelled or the run loop fails.
	Start(ctx context.Context) error
}

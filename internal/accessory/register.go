package accessory

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/logging"
)

// Registration is everything needed to publish the outlet
type Registration struct {
	Identity    Identity
	ServiceName string
	Setup       SetupInfo
	Handler     WriteHandler
}

// Register publishes the outlet on stack and then runs the stack.
//
// Any failure before the stack starts is returned as a *RegistrationError.
// A stack that implements io.Closer is closed when a step after Init fails.
// On success the calling goroutine is handed to stack.Start and Register
// does not return until ctx is cancelled or the stack's run loop fails.
func Register(ctx context.Context, stack Stack, reg Registration) error {
	if reg.Handler == nil {
		return &RegistrationError{Kind: ServiceRejected, Step: "SetWriteCallback", Err: errors.New("nil write handler")}
	}

	fail := func(kind ErrorKind, step string, err error) error {
		regErr := &RegistrationError{Kind: kind, Step: step, Err: err}
		logging.Error("Accessory registration failed",
			zap.String("kind", kind.String()),
			zap.String("step", step),
			zap.Error(err),
		)
		return regErr
	}

	if err := stack.Init(ctx); err != nil {
		return fail(StackInitFailed, "Init", err)
	}

	// Past Init the stack holds resources; release them if a later step fails
	initialized := fail
	fail = func(kind ErrorKind, step string, err error) error {
		if c, ok := stack.(io.Closer); ok {
			if cerr := c.Close(); cerr != nil {
				logging.Warn("Failed to release accessory stack", zap.Error(cerr))
			}
		}
		return initialized(kind, step, err)
	}

	acc, err := stack.CreateAccessory(reg.Identity)
	if err != nil {
		return fail(DuplicateRegistration, "CreateAccessory", err)
	}

	svc, err := stack.CreateService(OutletService())
	if err != nil {
		return fail(ServiceRejected, "CreateService", err)
	}
	if err := stack.SetName(svc, reg.ServiceName); err != nil {
		return fail(ServiceRejected, "SetName", err)
	}
	if err := stack.SetWriteCallback(svc, Adapt(reg.Handler)); err != nil {
		return fail(ServiceRejected, "SetWriteCallback", err)
	}
	if err := stack.AttachService(acc, svc); err != nil {
		return fail(ServiceRejected, "AttachService", err)
	}

	if err := stack.RegisterAccessory(acc); err != nil {
		return fail(DuplicateRegistration, "RegisterAccessory", err)
	}
	if err := stack.ProvisionSetup(reg.Setup); err != nil {
		return fail(SetupRejected, "ProvisionSetup", err)
	}

	logging.Info("Accessory registered, starting stack",
		zap.String("name", reg.Identity.Name),
		zap.String("service", reg.ServiceName),
		zap.Uint64("aid", acc.AID),
	)

	if err := stack.Start(ctx); err != nil {
		return fmt.Errorf("accessory stack stopped: %w", err)
	}
	return nil
}

package accessory

import (
	"context"
	"errors"
)

// fakeStack records the registration sequence and can fail any step
type fakeStack struct {
	calls  []string
	failAt string

	acc   *AccessoryDescriptor
	svc   *ServiceDescriptor
	cb    WriteCallback
	setup SetupInfo

	startErr error
	started  chan struct{}
	closed   bool
}

func newFakeStack() *fakeStack {
	return &fakeStack{started: make(chan struct{})}
}

var errStep = errors.New("step failed")

func (s *fakeStack) step(name string) error {
	s.calls = append(s.calls, name)
	if s.failAt == name {
		return errStep
	}
	return nil
}

func (s *fakeStack) Init(ctx context.Context) error { return s.step("Init") }

func (s *fakeStack) CreateAccessory(id Identity) (*AccessoryDescriptor, error) {
	if err := s.step("CreateAccessory"); err != nil {
		return nil, err
	}
	s.acc = &AccessoryDescriptor{AID: 1, Identity: id}
	return s.acc, nil
}

func (s *fakeStack) CreateService(tmpl ServiceDescriptor) (*ServiceDescriptor, error) {
	if err := s.step("CreateService"); err != nil {
		return nil, err
	}
	svc := tmpl
	svc.IID = 8
	for i, c := range svc.Characteristics {
		c.IID = uint64(9 + i)
	}
	s.svc = &svc
	return s.svc, nil
}

func (s *fakeStack) SetName(svc *ServiceDescriptor, name string) error {
	if err := s.step("SetName"); err != nil {
		return err
	}
	svc.Name = name
	return nil
}

func (s *fakeStack) SetWriteCallback(svc *ServiceDescriptor, cb WriteCallback) error {
	if err := s.step("SetWriteCallback"); err != nil {
		return err
	}
	s.cb = cb
	return nil
}

func (s *fakeStack) AttachService(acc *AccessoryDescriptor, svc *ServiceDescriptor) error {
	if err := s.step("AttachService"); err != nil {
		return err
	}
	acc.Services = append(acc.Services, svc)
	return nil
}

func (s *fakeStack) RegisterAccessory(acc *AccessoryDescriptor) error {
	return s.step("RegisterAccessory")
}

func (s *fakeStack) ProvisionSetup(setup SetupInfo) error {
	if err := s.step("ProvisionSetup"); err != nil {
		return err
	}
	s.setup = setup
	return nil
}

func (s *fakeStack) Start(ctx context.Context) error {
	s.calls = append(s.calls, "Start")
	close(s.started)
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeStack) Close() error {
	s.closed = true
	return nil
}

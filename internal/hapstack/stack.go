package hapstack

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/accessory"
	"github.com/muurk/smartoutlet/internal/config"
	"github.com/muurk/smartoutlet/internal/logging"
)

// Accessory information service and characteristic types
const (
	typeAccessoryInfo    = "3E"
	typeIdentify         = "14"
	typeManufacturer     = "20"
	typeModel            = "21"
	typeSerialNumber     = "30"
	typeFirmwareRevision = "52"
	typeHardwareRevision = "53"
)

const shutdownTimeout = 5 * time.Second

var (
	errNotInitialized = errors.New("stack not initialized")
	errAlreadyStarted = errors.New("stack already started")
)

// Config holds the stack configuration
type Config struct {
	Host      string
	Port      int
	Advertise bool

	// Listener is used instead of listening on Host:Port when set
	Listener net.Listener

	// Register publishes the mDNS service. Defaults to zeroconf.
	Register RegisterFunc
}

// Stack is an in-process accessory.Stack
type Stack struct {
	cfg Config

	// writeMu orders write callbacks and their commits
	writeMu sync.Mutex

	mu          sync.Mutex
	listener    net.Listener
	initialized bool
	started     bool
	nextAID     uint64
	nextIID     map[uint64]uint64
	attached    map[*accessory.ServiceDescriptor]uint64
	callbacks   map[*accessory.ServiceDescriptor]accessory.WriteCallback
	accessory   *accessory.AccessoryDescriptor
	setup       *accessory.SetupInfo
	events      *hub
	requestSeq  uint64
}

// New creates a stack. Nothing is bound until Init.
func New(cfg Config) *Stack {
	if cfg.Register == nil {
		cfg.Register = zeroconfRegister
	}
	return &Stack{
		cfg:       cfg,
		nextAID:   1,
		nextIID:   make(map[uint64]uint64),
		attached:  make(map[*accessory.ServiceDescriptor]uint64),
		callbacks: make(map[*accessory.ServiceDescriptor]accessory.WriteCallback),
		events:    newHub(),
	}
}

// Init binds the listener
func (s *Stack) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return errors.New("stack already initialized")
	}

	l := s.cfg.Listener
	if l == nil {
		addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
		var lc net.ListenConfig
		var err error
		l, err = lc.Listen(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}

	s.listener = l
	s.initialized = true
	logging.Debug("Accessory stack initialized", zap.String("addr", l.Addr().String()))
	return nil
}

// Addr returns the bound listener address, or nil before Init
func (s *Stack) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// CreateAccessory creates the accessory with its information service
func (s *Stack) CreateAccessory(id accessory.Identity) (*accessory.AccessoryDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	if s.accessory != nil {
		return nil, fmt.Errorf("accessory %d already registered", s.accessory.AID)
	}

	acc := &accessory.AccessoryDescriptor{AID: s.nextAID, Identity: id}
	s.nextAID++

	info := &accessory.ServiceDescriptor{
		Type: typeAccessoryInfo,
		Name: id.Name,
		Characteristics: []*accessory.Characteristic{
			{Type: typeIdentify, Format: "bool", Perms: accessory.PermWrite},
			{Type: typeManufacturer, Format: "string", Perms: accessory.PermRead, Value: id.Manufacturer},
			{Type: typeModel, Format: "string", Perms: accessory.PermRead, Value: id.Model},
			{Type: accessory.TypeName, Format: "string", Perms: accessory.PermRead, Value: id.Name},
			{Type: typeSerialNumber, Format: "string", Perms: accessory.PermRead, Value: id.Serial},
			{Type: typeFirmwareRevision, Format: "string", Perms: accessory.PermRead, Value: id.FirmwareRev},
			{Type: typeHardwareRevision, Format: "string", Perms: accessory.PermRead, Value: id.HardwareRev},
		},
	}
	s.attachLocked(acc, info)

	return acc, nil
}

// CreateService copies tmpl into a new unattached service
func (s *Stack) CreateService(tmpl accessory.ServiceDescriptor) (*accessory.ServiceDescriptor, error) {
	if tmpl.Type == "" {
		return nil, errors.New("service type is required")
	}

	svc := &accessory.ServiceDescriptor{Type: tmpl.Type, Name: tmpl.Name}
	for _, c := range tmpl.Characteristics {
		cc := *c
		cc.IID = 0
		svc.Characteristics = append(svc.Characteristics, &cc)
	}
	return svc, nil
}

// SetName names the service and adds a read-only Name characteristic
func (s *Stack) SetName(svc *accessory.ServiceDescriptor, name string) error {
	if name == "" {
		return errors.New("service name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attached[svc]; ok {
		return errors.New("cannot rename an attached service")
	}

	svc.Name = name
	if c, ok := svc.CharacteristicByType(accessory.TypeName); ok {
		c.Value = name
		return nil
	}
	svc.Characteristics = append(svc.Characteristics, &accessory.Characteristic{
		Type: accessory.TypeName, Format: "string", Perms: accessory.PermRead, Value: name,
	})
	return nil
}

// SetWriteCallback installs the callback invoked for writes to svc
func (s *Stack) SetWriteCallback(svc *accessory.ServiceDescriptor, cb accessory.WriteCallback) error {
	if cb == nil {
		return errors.New("nil write callback")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.callbacks[svc]; ok {
		return errors.New("write callback already set")
	}
	s.callbacks[svc] = cb
	return nil
}

// AttachService adds svc to acc and assigns instance ids
func (s *Stack) AttachService(acc *accessory.AccessoryDescriptor, svc *accessory.ServiceDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errAlreadyStarted
	}
	if _, ok := s.attached[svc]; ok {
		return errors.New("service already attached")
	}
	s.attachLocked(acc, svc)
	return nil
}

func (s *Stack) attachLocked(acc *accessory.AccessoryDescriptor, svc *accessory.ServiceDescriptor) {
	next := s.nextIID[acc.AID]
	if next == 0 {
		next = 1
	}

	svc.IID = next
	next++
	for _, c := range svc.Characteristics {
		c.IID = next
		next++
	}

	s.nextIID[acc.AID] = next
	s.attached[svc] = acc.AID
	acc.Services = append(acc.Services, svc)
}

// RegisterAccessory publishes acc. Only one accessory may be registered.
func (s *Stack) RegisterAccessory(acc *accessory.AccessoryDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if s.accessory != nil {
		return fmt.Errorf("accessory %d already registered", s.accessory.AID)
	}
	if len(acc.Services) < 2 {
		return errors.New("accessory has no services beyond accessory information")
	}

	s.accessory = acc
	logging.Debug("Accessory registered",
		zap.Uint64("aid", acc.AID),
		zap.Int("services", len(acc.Services)),
	)
	return nil
}

// ProvisionSetup stores the setup code and setup id
func (s *Stack) ProvisionSetup(setup accessory.SetupInfo) error {
	if err := config.ValidateSetupCode(setup.Code); err != nil {
		return err
	}
	if err := config.ValidateSetupID(setup.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setup = &setup
	return nil
}

// Start serves the accessory until ctx is cancelled or the listener fails.
// A cancelled ctx is a clean shutdown and returns nil.
func (s *Stack) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case !s.initialized:
		s.mu.Unlock()
		return errNotInitialized
	case s.started:
		s.mu.Unlock()
		return errAlreadyStarted
	case s.accessory == nil:
		s.mu.Unlock()
		return errors.New("no accessory registered")
	case s.setup == nil:
		s.mu.Unlock()
		return errors.New("setup not provisioned")
	}
	s.started = true
	acc := s.accessory
	setup := *s.setup
	listener := s.listener
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(listener)
	}()

	logging.Info("Accessory stack listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("name", acc.Identity.Name),
	)

	if s.cfg.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		adv, err := s.cfg.Register(acc.Identity.Name, port, TXTRecords(acc.Identity, setup.ID))
		if err != nil {
			_ = srv.Close()
			return fmt.Errorf("failed to advertise accessory: %w", err)
		}
		defer adv.Shutdown()
		logging.Info("Accessory advertised",
			zap.String("service", ServiceType),
			zap.Int("port", port),
		)
	}

	select {
	case <-ctx.Done():
		logging.Info("Shutting down accessory stack...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.events.closeAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Accessory stack shutdown timeout, forcing close", zap.Error(err))
			_ = srv.Close()
		}
		return nil
	case err := <-errChan:
		s.events.closeAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close releases the listener of a stack that never started. A started
// stack is stopped by cancelling the context passed to Start.
func (s *Stack) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.listener = nil
	s.initialized = false
	return err
}

// Subscribers returns the number of connected event subscribers
func (s *Stack) Subscribers() int {
	return s.events.count()
}

func (s *Stack) nextRequestID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestSeq++
	return s.requestSeq
}

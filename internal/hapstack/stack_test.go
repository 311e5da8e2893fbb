package hapstack

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/smartoutlet/internal/accessory"
	"github.com/muurk/smartoutlet/internal/actuator"
)

var testIdentity = accessory.Identity{
	Name:            "Smart-Outlet",
	Model:           "Esp32",
	Manufacturer:    "Espressif",
	Serial:          "111122334455",
	FirmwareRev:     "1.0.0",
	HardwareRev:     "0.1.0",
	ProtocolVersion: "1.1.0",
	Category:        accessory.CategoryOutlet,
}

type running struct {
	stack  *Stack
	client *Client
	guard  *actuator.Guard
	outlet CharacteristicID
	cancel context.CancelFunc
	done   chan error
}

// startStack registers an outlet on a loopback stack and waits for it to serve
func startStack(t *testing.T, cfg Config, bind bool) *running {
	t.Helper()

	guard := actuator.NewGuard()
	if bind {
		guard.Bind(actuator.NewSimPin("test"))
	}
	return startStackWithHandler(t, cfg, guard, accessory.NewOutletHandler(guard, accessory.ReportFailure))
}

func startStackWithHandler(t *testing.T, cfg Config, guard *actuator.Guard, handler accessory.WriteHandler) *running {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	cfg.Listener = l

	r := &running{
		stack:  New(cfg),
		client: NewClient(l.Addr().String()),
		guard:  guard,
		done:   make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go func() {
		r.done <- accessory.Register(ctx, r.stack, accessory.Registration{
			Identity:    testIdentity,
			ServiceName: "My Smart Outlet",
			Setup:       accessory.SetupInfo{Code: "111-22-333", ID: "ES32"},
			Handler:     handler,
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		accs, err := r.client.Accessories(context.Background())
		if err == nil {
			r.outlet, err = FindOutlet(accs)
			if err != nil {
				t.Fatalf("FindOutlet() error = %v", err)
			}
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("stack never started: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Cleanup(func() {
		cancel()
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Error("stack did not stop")
		}
	})
	return r
}

func TestStack_AccessoryDatabase(t *testing.T) {
	r := startStack(t, Config{}, true)

	accs, err := r.client.Accessories(context.Background())
	if err != nil {
		t.Fatalf("Accessories() error = %v", err)
	}
	if len(accs) != 1 || accs[0].AID != 1 {
		t.Fatalf("accessories = %+v", accs)
	}

	services := accs[0].Services
	if len(services) != 2 {
		t.Fatalf("services = %d, want 2", len(services))
	}
	if services[0].Type != typeAccessoryInfo {
		t.Errorf("first service type = %s, want accessory information", services[0].Type)
	}

	outlet := services[1]
	types := map[string]CharacteristicJSON{}
	for _, c := range outlet.Characteristics {
		types[c.Type] = c
	}
	if on := types[accessory.TypeOn]; strings.Join(on.Perms, ",") != "pr,pw,ev" || on.Value != false {
		t.Errorf("On = %+v", on)
	}
	if inUse := types[accessory.TypeOutletInUse]; inUse.Value != true {
		t.Errorf("OutletInUse = %+v", inUse)
	}
	if name := types[accessory.TypeName]; name.Value != "My Smart Outlet" {
		t.Errorf("Name = %+v", name)
	}

	seen := map[uint64]bool{}
	for _, s := range services {
		for _, c := range s.Characteristics {
			if seen[c.IID] || c.IID == s.IID {
				t.Errorf("duplicate iid %d", c.IID)
			}
			seen[c.IID] = true
		}
	}
}

func TestStack_WriteDrivesGuard(t *testing.T) {
	r := startStack(t, Config{}, true)
	ctx := context.Background()

	for _, v := range []bool{true, false, true} {
		if err := r.client.Write(ctx, r.outlet, v); err != nil {
			t.Fatalf("Write(%v) error = %v", v, err)
		}
		got, ok := r.guard.Get()
		if !ok || got != v {
			t.Errorf("guard = %v, %v after Write(%v)", got, ok, v)
		}
		read, err := r.client.ReadBool(ctx, r.outlet)
		if err != nil || read != v {
			t.Errorf("ReadBool() = %v, %v, want %v", read, err, v)
		}
	}
}

func TestStack_OverlappingWritesPublishLastApplied(t *testing.T) {
	guard := actuator.NewGuard()
	guard.Bind(actuator.NewSimPin("test"))
	outlet := accessory.NewOutletHandler(guard, accessory.ReportFailure)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	handler := accessory.WriteHandlerFunc(func(cmd accessory.WriteCommand) accessory.Status {
		status := outlet.OnWrite(cmd)
		if cmd.Value {
			// Hold the first write after it reached the pin
			once.Do(func() {
				close(entered)
				<-release
			})
		}
		return status
	})

	r := startStackWithHandler(t, Config{}, guard, handler)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- r.client.Write(ctx, r.outlet, true) }()
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first write never reached the handler")
	}

	second := make(chan error, 1)
	go func() { second <- r.client.Write(ctx, r.outlet, false) }()

	// Give the second write time to overtake if nothing orders them
	time.Sleep(50 * time.Millisecond)
	close(release)

	for _, ch := range []chan error{first, second} {
		select {
		case err := <-ch:
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("write did not complete")
		}
	}

	physical, ok := guard.Get()
	if !ok || physical {
		t.Fatalf("guard = %v, %v, want false", physical, ok)
	}
	read, err := r.client.ReadBool(ctx, r.outlet)
	if err != nil {
		t.Fatalf("ReadBool() error = %v", err)
	}
	if read != physical {
		t.Errorf("ReadBool() = %v, guard = %v", read, physical)
	}
}

func TestStack_WriteRejections(t *testing.T) {
	r := startStack(t, Config{}, true)
	ctx := context.Background()
	inUse := CharacteristicID{AID: r.outlet.AID, IID: r.outlet.IID + 1}

	tests := []struct {
		name  string
		id    CharacteristicID
		value any
		want  accessory.Status
	}{
		{"string value", r.outlet, "on", accessory.StatusInvalidValue},
		{"number out of range", r.outlet, 7, accessory.StatusInvalidValue},
		{"read only", inUse, false, accessory.StatusReadOnly},
		{"unknown iid", CharacteristicID{AID: 1, IID: 999}, true, accessory.StatusNotFound},
		{"unknown aid", CharacteristicID{AID: 9, IID: r.outlet.IID}, true, accessory.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.client.Write(ctx, tt.id, tt.value)

			var wErr *WriteError
			if !errors.As(err, &wErr) {
				t.Fatalf("Write() error = %v, want *WriteError", err)
			}
			if wErr.Status != tt.want {
				t.Errorf("status = %s, want %s", wErr.Status, tt.want)
			}
			if got, _ := r.guard.Get(); got {
				t.Error("rejected write changed outlet state")
			}
		})
	}
}

func TestStack_NumericWriteNormalized(t *testing.T) {
	r := startStack(t, Config{}, true)
	ctx := context.Background()

	if err := r.client.Write(ctx, r.outlet, 1); err != nil {
		t.Fatalf("Write(1) error = %v", err)
	}
	got, err := r.client.ReadBool(ctx, r.outlet)
	if err != nil || !got {
		t.Errorf("ReadBool() = %v, %v, want true", got, err)
	}
}

func TestStack_UnboundWriteReportsFailure(t *testing.T) {
	r := startStack(t, Config{}, false)

	err := r.client.Write(context.Background(), r.outlet, true)

	var wErr *WriteError
	if !errors.As(err, &wErr) || wErr.Status != accessory.StatusCommunicationFailure {
		t.Fatalf("Write() error = %v, want communication failure", err)
	}
	got, err := r.client.ReadBool(context.Background(), r.outlet)
	if err != nil || got {
		t.Errorf("ReadBool() = %v, %v, want false", got, err)
	}
}

func TestStack_ReadUnknown(t *testing.T) {
	r := startStack(t, Config{}, true)

	vals, err := r.client.Read(context.Background(), r.outlet, CharacteristicID{AID: 1, IID: 999})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(vals) != 2 {
		t.Fatalf("values = %d, want 2", len(vals))
	}
	if vals[0].Status == nil || *vals[0].Status != 0 || vals[0].Value != false {
		t.Errorf("vals[0] = %+v", vals[0])
	}
	if vals[1].Status == nil || accessory.Status(*vals[1].Status) != accessory.StatusNotFound {
		t.Errorf("vals[1] = %+v", vals[1])
	}
}

func TestStack_Events(t *testing.T) {
	r := startStack(t, Config{}, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := r.client.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	waitSubscribers(t, r.stack, 1)

	next := func() CharacteristicValue {
		t.Helper()
		select {
		case v, ok := <-events:
			if !ok {
				t.Fatal("event stream closed")
			}
			return v
		case <-time.After(2 * time.Second):
			t.Fatal("no event")
		}
		return CharacteristicValue{}
	}

	// Snapshot: On then OutletInUse
	if v := next(); v.IID != r.outlet.IID || v.Value != false {
		t.Errorf("snapshot On = %+v", v)
	}
	next()

	if err := r.client.Write(context.Background(), r.outlet, true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if v := next(); v.IID != r.outlet.IID || v.Value != true {
		t.Errorf("event = %+v, want On=true", v)
	}

	cancel()
	waitSubscribers(t, r.stack, 0)
}

func waitSubscribers(t *testing.T, s *Stack, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Subscribers() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Subscribers() = %d, want %d", s.Subscribers(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStack_StopsOnCancel(t *testing.T) {
	r := startStack(t, Config{}, true)

	r.cancel()
	select {
	case err := <-r.done:
		if err != nil {
			t.Errorf("Register() after cancel = %v", err)
		}
		r.done <- nil // for cleanup
	case <-time.After(2 * time.Second):
		t.Fatal("stack did not stop")
	}
}

type fakeAdvertisement struct {
	mu       sync.Mutex
	instance string
	port     int
	txt      []string
	shutdown bool
}

func (a *fakeAdvertisement) register(instance string, port int, txt []string) (Advertisement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.instance, a.port, a.txt = instance, port, txt
	return a, nil
}

func (a *fakeAdvertisement) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdown = true
}

func TestStack_Advertise(t *testing.T) {
	adv := &fakeAdvertisement{}
	r := startStack(t, Config{Advertise: true, Register: adv.register}, true)

	adv.mu.Lock()
	instance, port, txt := adv.instance, adv.port, adv.txt
	adv.mu.Unlock()

	if instance != "Smart-Outlet" {
		t.Errorf("instance = %q", instance)
	}
	if port != r.stack.Addr().(*net.TCPAddr).Port {
		t.Errorf("port = %d", port)
	}
	if !contains(txt, "ci=7") || !contains(txt, "md=Esp32") {
		t.Errorf("txt = %v", txt)
	}

	r.cancel()
	<-r.done
	r.done <- nil

	adv.mu.Lock()
	defer adv.mu.Unlock()
	if !adv.shutdown {
		t.Error("advertisement not shut down")
	}
}

func TestStack_RegistrationRules(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer l.Close()

	s := New(Config{Listener: l})
	ctx := context.Background()

	if _, err := s.CreateAccessory(testIdentity); err == nil {
		t.Error("CreateAccessory() before Init should fail")
	}
	if err := s.Start(ctx); err == nil {
		t.Error("Start() before Init should fail")
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := s.Init(ctx); err == nil {
		t.Error("second Init() should fail")
	}

	acc, err := s.CreateAccessory(testIdentity)
	if err != nil {
		t.Fatalf("CreateAccessory() error = %v", err)
	}
	if err := s.RegisterAccessory(acc); err == nil {
		t.Error("RegisterAccessory() without an outlet service should fail")
	}

	svc, _ := s.CreateService(accessory.OutletService())
	if err := s.SetName(svc, ""); err == nil {
		t.Error("SetName(\"\") should fail")
	}
	if err := s.SetWriteCallback(svc, nil); err == nil {
		t.Error("SetWriteCallback(nil) should fail")
	}
	if err := s.AttachService(acc, svc); err != nil {
		t.Fatalf("AttachService() error = %v", err)
	}
	if err := s.AttachService(acc, svc); err == nil {
		t.Error("second AttachService() should fail")
	}
	if err := s.RegisterAccessory(acc); err != nil {
		t.Fatalf("RegisterAccessory() error = %v", err)
	}
	if err := s.RegisterAccessory(acc); err == nil {
		t.Error("duplicate RegisterAccessory() should fail")
	}
	if _, err := s.CreateAccessory(testIdentity); err == nil {
		t.Error("CreateAccessory() after registration should fail")
	}

	if err := s.Start(ctx); err == nil {
		t.Error("Start() without setup should fail")
	}
	if err := s.ProvisionSetup(accessory.SetupInfo{Code: "000-00-000", ID: "ES32"}); err == nil {
		t.Error("trivial setup code accepted")
	}
	if err := s.ProvisionSetup(accessory.SetupInfo{Code: "111-22-333", ID: "es"}); err == nil {
		t.Error("bad setup id accepted")
	}
}

func TestStack_InitListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	err = accessory.Register(context.Background(), New(Config{Host: "127.0.0.1", Port: port}), accessory.Registration{
		Identity: testIdentity,
		Handler:  accessory.WriteHandlerFunc(func(accessory.WriteCommand) accessory.Status { return accessory.StatusSuccess }),
	})

	if kind, ok := accessory.KindOf(err); !ok || kind != accessory.StackInitFailed {
		t.Errorf("Register() error = %v, want StackInitFailed", err)
	}
}

func TestStack_FailedRegistrationReleasesListener(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := l.Addr().String()

	err = accessory.Register(context.Background(), New(Config{Listener: l}), accessory.Registration{
		Identity:    testIdentity,
		ServiceName: "My Smart Outlet",
		Setup:       accessory.SetupInfo{Code: "000-00-000", ID: "ES32"},
		Handler:     accessory.WriteHandlerFunc(func(accessory.WriteCommand) accessory.Status { return accessory.StatusSuccess }),
	})
	if kind, ok := accessory.KindOf(err); !ok || kind != accessory.SetupRejected {
		t.Fatalf("Register() error = %v, want SetupRejected", err)
	}

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err == nil {
		conn.Close()
		t.Error("listener still accepting after failed registration")
	}
}

func TestStack_CloseAfterStartIsNoop(t *testing.T) {
	r := startStack(t, Config{}, true)

	if err := r.stack.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := r.client.Accessories(context.Background()); err != nil {
		t.Errorf("Accessories() after Close = %v, want stack still serving", err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

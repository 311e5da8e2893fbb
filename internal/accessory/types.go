package accessory

import "fmt"

// Status is an accessory-protocol status code
type Status int

const (
	StatusSuccess              Status = 0
	StatusCommunicationFailure Status = -70402
	StatusReadOnly             Status = -70404
	StatusNotFound             Status = -70409
	StatusInvalidValue         Status = -70410
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusCommunicationFailure:
		return "communication failure"
	case StatusReadOnly:
		return "read only"
	case StatusNotFound:
		return "not found"
	case StatusInvalidValue:
		return "invalid value"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Category is the accessory category code advertised to controllers
type Category int

// CategoryOutlet identifies an outlet
const CategoryOutlet Category = 7

// Identity describes the accessory to controllers
type Identity struct {
	Name            string
	Model           string
	Manufacturer    string
	Serial          string
	FirmwareRev     string
	HardwareRev     string
	ProtocolVersion string
	Category        Category
}

// SetupInfo is the pairing setup code and setup identifier
type SetupInfo struct {
	Code string
	ID   string
}

// Characteristic types (short UUID form)
const (
	TypeName        = "23"
	TypeOn          = "25"
	TypeOutletInUse = "26"
)

// Service types (short UUID form)
const TypeOutletService = "47"

// Perm is a characteristic permission set
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermEvents
)

// Has reports whether p contains all bits of q
func (p Perm) Has(q Perm) bool { return p&q == q }

// Strings renders p in accessory-protocol notation
func (p Perm) Strings() []string {
	var out []string
	if p.Has(PermRead) {
		out = append(out, "pr")
	}
	if p.Has(PermWrite) {
		out = append(out, "pw")
	}
	if p.Has(PermEvents) {
		out = append(out, "ev")
	}
	return out
}

// Characteristic is one value of a service
type Characteristic struct {
	IID    uint64 // assigned by the stack
	Type   string
	Format string
	Perms  Perm
	Value  any
}

// ServiceDescriptor is a service and its characteristics
type ServiceDescriptor struct {
	IID             uint64 // assigned by the stack
	Type            string
	Name            string
	Characteristics []*Characteristic
}

// Characteristic returns the characteristic with the given instance id
func (s *ServiceDescriptor) Characteristic(iid uint64) (*Characteristic, bool) {
	for _, c := range s.Characteristics {
		if c.IID == iid {
			return c, true
		}
	}
	return nil, false
}

// CharacteristicByType returns the first characteristic of the given type
func (s *ServiceDescriptor) CharacteristicByType(typ string) (*Characteristic, bool) {
	for _, c := range s.Characteristics {
		if c.Type == typ {
			return c, true
		}
	}
	return nil, false
}

// AccessoryDescriptor is an accessory and its attached services
type AccessoryDescriptor struct {
	AID      uint64 // assigned by the stack
	Identity Identity
	Services []*ServiceDescriptor
}

// OutletService returns the outlet service template: a writable On value
// and a read-only OutletInUse value.
func OutletService() ServiceDescriptor {
	return ServiceDescriptor{
		Type: TypeOutletService,
		Characteristics: []*Characteristic{
			{Type: TypeOn, Format: "bool", Perms: PermRead | PermWrite | PermEvents, Value: false},
			{Type: TypeOutletInUse, Format: "bool", Perms: PermRead | PermEvents, Value: true},
		},
	}
}

// WriteRequest is one raw characteristic write as delivered by the stack.
// The callback sets Status for each request it processes.
type WriteRequest struct {
	AID    uint64
	IID    uint64
	Value  any
	Status Status
}

// WriteCallback is installed on a service and invoked on the stack's
// goroutines. serviceCtx is the *ServiceDescriptor the write targets.
type WriteCallback func(reqs []WriteRequest, count int, serviceCtx, requestCtx any) Status

// WriteCommand is a validated write of the outlet's On value
type WriteCommand struct {
	Value   bool
	Context any
}

// WriteHandler applies validated outlet writes
type WriteHandler interface {
	OnWrite(cmd WriteCommand) Status
}

// WriteHandlerFunc adapts a function to WriteHandler
type WriteHandlerFunc func(cmd WriteCommand) Status

// OnWrite calls f(cmd)
func (f WriteHandlerFunc) OnWrite(cmd WriteCommand) Status { return f(cmd) }

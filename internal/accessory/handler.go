package accessory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/actuator"
	"github.com/muurk/smartoutlet/internal/logging"
)

// UnboundPolicy decides the status reported for writes that arrive before
// the outlet pin is bound. The write itself is dropped either way.
type UnboundPolicy int

const (
	// ReportSuccess acknowledges the dropped write
	ReportSuccess UnboundPolicy = iota
	// ReportFailure answers with StatusCommunicationFailure
	ReportFailure
)

func (p UnboundPolicy) String() string {
	switch p {
	case ReportSuccess:
		return "report-success"
	case ReportFailure:
		return "report-failure"
	default:
		return fmt.Sprintf("UnboundPolicy(%d)", int(p))
	}
}

// ParseUnboundPolicy parses the configuration form of a policy
func ParseUnboundPolicy(s string) (UnboundPolicy, error) {
	switch s {
	case "report-success", "":
		return ReportSuccess, nil
	case "report-failure":
		return ReportFailure, nil
	default:
		return 0, fmt.Errorf("unknown unbound write policy %q", s)
	}
}

// Actuator is the guarded output the handler drives
type Actuator interface {
	Set(value bool) error
}

// OutletHandler applies On writes to an Actuator
type OutletHandler struct {
	out    Actuator
	policy UnboundPolicy
}

// NewOutletHandler creates a handler driving out
func NewOutletHandler(out Actuator, policy UnboundPolicy) *OutletHandler {
	return &OutletHandler{out: out, policy: policy}
}

// OnWrite sets the outlet and reports the outcome
func (h *OutletHandler) OnWrite(cmd WriteCommand) Status {
	err := h.out.Set(cmd.Value)
	if err == nil {
		return StatusSuccess
	}

	if actuator.IsNotInitialized(err) {
		if h.policy == ReportFailure {
			return StatusCommunicationFailure
		}
		return StatusSuccess
	}

	logging.Error("Outlet write failed", zap.Bool("value", cmd.Value), zap.Error(err))
	return StatusCommunicationFailure
}

// Adapt turns a WriteHandler into the stack's callback form. Each of the
// first count requests is checked against the service passed as serviceCtx
// and only well-formed On writes reach h. Rejected requests get a failure
// status and never reach h. The returned status is the first failure, or
// StatusSuccess.
func Adapt(h WriteHandler) WriteCallback {
	return func(reqs []WriteRequest, count int, serviceCtx, requestCtx any) Status {
		if count < 0 || count > len(reqs) {
			logging.Warn("Write batch count mismatch",
				zap.Int("count", count),
				zap.Int("requests", len(reqs)),
			)
			for i := range reqs {
				reqs[i].Status = StatusInvalidValue
			}
			return StatusInvalidValue
		}

		svc, _ := serviceCtx.(*ServiceDescriptor)

		overall := StatusSuccess
		for i := range reqs[:count] {
			req := &reqs[i]
			req.Status = dispatch(h, svc, req, requestCtx)
			logging.LogWrite(req.AID, req.IID, req.Value, int(req.Status))
			if req.Status != StatusSuccess && overall == StatusSuccess {
				overall = req.Status
			}
		}
		return overall
	}
}

func dispatch(h WriteHandler, svc *ServiceDescriptor, req *WriteRequest, requestCtx any) Status {
	if svc != nil {
		c, ok := svc.Characteristic(req.IID)
		if !ok {
			return StatusNotFound
		}
		if !c.Perms.Has(PermWrite) {
			return StatusReadOnly
		}
		if c.Type != TypeOn {
			return StatusNotFound
		}
	}

	value, ok := coerceBool(req.Value)
	if !ok {
		return StatusInvalidValue
	}

	return h.OnWrite(WriteCommand{Value: value, Context: requestCtx})
}

// coerceBool accepts booleans and the numbers 0 and 1
func coerceBool(v any) (bool, bool) {
	var n float64
	switch x := v.(type) {
	case bool:
		return x, true
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int8:
		n = float64(x)
	case int16:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint:
		n = float64(x)
	case uint8:
		n = float64(x)
	case uint16:
		n = float64(x)
	case uint32:
		n = float64(x)
	case uint64:
		n = float64(x)
	default:
		return false, false
	}

	switch n {
	case 0:
		return false, true
	case 1:
		return true, true
	default:
		return false, false
	}
}

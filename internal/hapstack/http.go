package hapstack

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/accessory"
	"github.com/muurk/smartoutlet/internal/logging"
	"github.com/muurk/smartoutlet/internal/version"
)

const contentType = "application/hap+json"

// maxWriteBody bounds a PUT /characteristics body
const maxWriteBody = 64 << 10

// Handler returns the stack's HTTP handler
func (s *Stack) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /accessories", s.handleAccessories)
	mux.HandleFunc("GET /characteristics", s.handleReadCharacteristics)
	mux.HandleFunc("PUT /characteristics", s.handleWriteCharacteristics)
	mux.HandleFunc("GET /events", s.handleEvents)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path)
		w.Header().Set("Server", version.ServerHeader())
		mux.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func writeStatus(w http.ResponseWriter, code int, status accessory.Status) {
	writeJSON(w, code, map[string]int{"status": int(status)})
}

// lookup finds a characteristic and the service holding it. Caller holds s.mu.
func (s *Stack) lookupLocked(id CharacteristicID) (*accessory.ServiceDescriptor, *accessory.Characteristic, bool) {
	if s.accessory == nil || s.accessory.AID != id.AID {
		return nil, nil, false
	}
	for _, svc := range s.accessory.Services {
		if c, ok := svc.Characteristic(id.IID); ok {
			return svc, c, true
		}
	}
	return nil, nil, false
}

func (s *Stack) handleAccessories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := AccessoriesResponse{Accessories: []AccessoryJSON{}}
	if acc := s.accessory; acc != nil {
		a := AccessoryJSON{AID: acc.AID}
		for _, svc := range acc.Services {
			sj := ServiceJSON{IID: svc.IID, Type: svc.Type}
			for _, c := range svc.Characteristics {
				cj := CharacteristicJSON{
					IID:    c.IID,
					Type:   c.Type,
					Format: c.Format,
					Perms:  c.Perms.Strings(),
				}
				if c.Perms.Has(accessory.PermRead) {
					cj.Value = c.Value
				}
				sj.Characteristics = append(sj.Characteristics, cj)
			}
			a.Services = append(a.Services, sj)
		}
		resp.Accessories = append(resp.Accessories, a)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Stack) handleReadCharacteristics(w http.ResponseWriter, r *http.Request) {
	ids, err := ParseIDs(r.URL.Query().Get("id"))
	if err != nil {
		writeStatus(w, http.StatusBadRequest, accessory.StatusInvalidValue)
		return
	}

	s.mu.Lock()
	out := make([]CharacteristicValue, 0, len(ids))
	failed := false
	for _, id := range ids {
		v := CharacteristicValue{AID: id.AID, IID: id.IID}
		_, c, ok := s.lookupLocked(id)
		switch {
		case !ok:
			v.Status = statusPtr(int(accessory.StatusNotFound))
			failed = true
		case !c.Perms.Has(accessory.PermRead):
			v.Status = statusPtr(int(accessory.StatusReadOnly))
			failed = true
		default:
			v.Value = c.Value
		}
		out = append(out, v)
	}
	s.mu.Unlock()

	code := http.StatusOK
	if failed {
		code = http.StatusMultiStatus
		for i := range out {
			if out[i].Status == nil {
				out[i].Status = statusPtr(int(accessory.StatusSuccess))
			}
		}
	}
	writeJSON(w, code, CharacteristicsBody{Characteristics: out})
}

// pendingWrite groups the requests aimed at one service
type pendingWrite struct {
	svc  *accessory.ServiceDescriptor
	cb   accessory.WriteCallback
	reqs []accessory.WriteRequest
	idx  []int // positions in the response
}

func (s *Stack) handleWriteCharacteristics(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWriteBody))
	if err != nil {
		writeStatus(w, http.StatusBadRequest, accessory.StatusInvalidValue)
		return
	}
	logging.LogRawBytes("Write request body", raw)

	var body CharacteristicsBody
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Characteristics) == 0 {
		writeStatus(w, http.StatusBadRequest, accessory.StatusInvalidValue)
		return
	}

	results := make([]accessory.Status, len(body.Characteristics))
	var groups []*pendingWrite

	s.mu.Lock()
	for i, cv := range body.Characteristics {
		id := CharacteristicID{AID: cv.AID, IID: cv.IID}
		svc, c, ok := s.lookupLocked(id)
		if !ok {
			results[i] = accessory.StatusNotFound
			continue
		}
		if !c.Perms.Has(accessory.PermWrite) {
			results[i] = accessory.StatusReadOnly
			continue
		}
		if c.Type == typeIdentify {
			logging.Info("Identify requested", zap.Uint64("aid", cv.AID))
			results[i] = accessory.StatusSuccess
			continue
		}

		cb, ok := s.callbacks[svc]
		if !ok {
			results[i] = accessory.StatusCommunicationFailure
			continue
		}

		var g *pendingWrite
		for _, existing := range groups {
			if existing.svc == svc {
				g = existing
			}
		}
		if g == nil {
			g = &pendingWrite{svc: svc, cb: cb}
			groups = append(groups, g)
		}
		g.reqs = append(g.reqs, accessory.WriteRequest{AID: cv.AID, IID: cv.IID, Value: cv.Value})
		g.idx = append(g.idx, i)
	}
	s.mu.Unlock()

	s.applyWrites(groups, results)

	failed := false
	for _, st := range results {
		if st != accessory.StatusSuccess {
			failed = true
			break
		}
	}
	if !failed {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	out := make([]CharacteristicValue, len(body.Characteristics))
	for i, cv := range body.Characteristics {
		out[i] = CharacteristicValue{AID: cv.AID, IID: cv.IID, Status: statusPtr(int(results[i]))}
	}
	writeJSON(w, http.StatusMultiStatus, CharacteristicsBody{Characteristics: out})
}

// applyWrites runs the write callbacks without s.mu held. writeMu keeps
// the committed values in the order the callbacks applied them.
func (s *Stack) applyWrites(groups []*pendingWrite, results []accessory.Status) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	requestID := s.nextRequestID()
	for _, g := range groups {
		g.cb(g.reqs, len(g.reqs), g.svc, requestID)
		for j, req := range g.reqs {
			results[g.idx[j]] = req.Status
			if req.Status == accessory.StatusSuccess {
				s.commit(g.svc, req)
			}
		}
	}
}

// commit stores an accepted value and notifies subscribers. Caller holds s.writeMu.
func (s *Stack) commit(svc *accessory.ServiceDescriptor, req accessory.WriteRequest) {
	s.mu.Lock()
	c, ok := svc.Characteristic(req.IID)
	if !ok {
		s.mu.Unlock()
		return
	}
	value := normalize(c.Format, req.Value)
	changed := c.Value != value
	c.Value = value
	evented := c.Perms.Has(accessory.PermEvents)
	s.mu.Unlock()

	if changed && evented {
		s.events.publish(CharacteristicValue{AID: req.AID, IID: req.IID, Value: value})
	}
}

// normalize maps accepted numeric booleans onto bool
func normalize(format string, v any) any {
	if format != "bool" {
		return v
	}
	if n, ok := v.(float64); ok {
		return n != 0
	}
	return v
}

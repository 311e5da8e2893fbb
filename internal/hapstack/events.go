package hapstack

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/accessory"
	"github.com/muurk/smartoutlet/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Buffered events per subscriber before it is dropped
	subscriberBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// hub fans value changes out to websocket subscribers
type hub struct {
	mu   sync.Mutex
	subs map[chan CharacteristicValue]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan CharacteristicValue]struct{})}
}

func (h *hub) subscribe() chan CharacteristicValue {
	ch := make(chan CharacteristicValue, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan CharacteristicValue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// publish never blocks; a subscriber that falls behind is disconnected
func (h *hub) publish(v CharacteristicValue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- v:
		default:
			logging.Warn("Event subscriber too slow, dropping")
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// snapshotLocked returns the readable evented values. Caller holds s.mu.
func (s *Stack) snapshotLocked() []CharacteristicValue {
	var out []CharacteristicValue
	if s.accessory == nil {
		return out
	}
	for _, svc := range s.accessory.Services {
		for _, c := range svc.Characteristics {
			if c.Perms.Has(accessory.PermEvents) && c.Perms.Has(accessory.PermRead) {
				out = append(out, CharacteristicValue{AID: s.accessory.AID, IID: c.IID, Value: c.Value})
			}
		}
	}
	return out
}

func (s *Stack) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("Event subscription upgrade failed", zap.Error(err))
		return
	}
	remoteAddr := r.RemoteAddr
	logging.LogConnection(remoteAddr, "events_subscribed")

	ch := s.events.subscribe()

	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	defer func() {
		s.events.unsubscribe(ch)
		_ = conn.Close()
		logging.LogConnection(remoteAddr, "events_closed")
	}()

	// Reader: handles pongs and notices the peer going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(values []CharacteristicValue) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(CharacteristicsBody{Characteristics: values})
	}

	if len(snapshot) > 0 {
		if err := send(snapshot); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
					time.Now().Add(writeWait))
				return
			}
			if err := send([]CharacteristicValue{v}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

package hapstack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/smartoutlet/internal/accessory"
	"github.com/muurk/smartoutlet/internal/logging"
)

// ErrNoOutlet is returned when the accessory database has no On characteristic
var ErrNoOutlet = errors.New("no outlet service found")

// WriteError reports a rejected characteristic write
type WriteError struct {
	ID     CharacteristicID
	Status accessory.Status
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write to %s rejected: %s", e.ID, e.Status)
}

// Client talks to a running stack
type Client struct {
	base   string
	http   *http.Client
	dialer *websocket.Dialer
}

// NewClient creates a client for addr ("host:port")
func NewClient(addr string) *Client {
	return &Client{
		base:   "http://" + addr,
		http:   &http.Client{Timeout: 10 * time.Second},
		dialer: websocket.DefaultDialer,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// Accessories fetches the accessory database
func (c *Client) Accessories(ctx context.Context) ([]AccessoryJSON, error) {
	resp, err := c.do(ctx, http.MethodGet, "/accessories", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /accessories: unexpected status %d", resp.StatusCode)
	}

	var out AccessoriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode accessories: %w", err)
	}
	return out.Accessories, nil
}

// FindOutlet returns the id of the first outlet On characteristic
func FindOutlet(accs []AccessoryJSON) (CharacteristicID, error) {
	for _, a := range accs {
		for _, s := range a.Services {
			if s.Type != accessory.TypeOutletService {
				continue
			}
			for _, ch := range s.Characteristics {
				if ch.Type == accessory.TypeOn {
					return CharacteristicID{AID: a.AID, IID: ch.IID}, nil
				}
			}
		}
	}
	return CharacteristicID{}, ErrNoOutlet
}

// Read returns the current values of ids
func (c *Client) Read(ctx context.Context, ids ...CharacteristicID) ([]CharacteristicValue, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}

	resp, err := c.do(ctx, http.MethodGet, "/characteristics?id="+url.QueryEscape(strings.Join(parts, ",")), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return nil, fmt.Errorf("GET /characteristics: unexpected status %d", resp.StatusCode)
	}

	var body CharacteristicsBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode characteristics: %w", err)
	}
	return body.Characteristics, nil
}

// ReadBool reads a single boolean characteristic
func (c *Client) ReadBool(ctx context.Context, id CharacteristicID) (bool, error) {
	vals, err := c.Read(ctx, id)
	if err != nil {
		return false, err
	}
	if len(vals) != 1 {
		return false, fmt.Errorf("expected 1 value, got %d", len(vals))
	}
	if st := vals[0].Status; st != nil && *st != 0 {
		return false, &WriteError{ID: id, Status: accessory.Status(*st)}
	}
	b, ok := vals[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("value of %s is %T, not bool", id, vals[0].Value)
	}
	return b, nil
}

// Write sets one characteristic
func (c *Client) Write(ctx context.Context, id CharacteristicID, value any) error {
	body := CharacteristicsBody{Characteristics: []CharacteristicValue{{AID: id.AID, IID: id.IID, Value: value}}}

	resp, err := c.do(ctx, http.MethodPut, "/characteristics", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusMultiStatus:
		var out CharacteristicsBody
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("failed to decode write status: %w", err)
		}
		for _, v := range out.Characteristics {
			if v.Status != nil && *v.Status != 0 {
				return &WriteError{ID: CharacteristicID{AID: v.AID, IID: v.IID}, Status: accessory.Status(*v.Status)}
			}
		}
		return nil
	default:
		return fmt.Errorf("PUT /characteristics: unexpected status %d", resp.StatusCode)
	}
}

// Subscribe streams value-change events until ctx is cancelled or the
// connection drops. The channel is closed when the stream ends.
func (c *Client) Subscribe(ctx context.Context) (<-chan CharacteristicValue, error) {
	wsURL := "ws" + strings.TrimPrefix(c.base, "http") + "/events"
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan CharacteristicValue, subscriberBuffer)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(out)
		defer close(done)
		defer conn.Close()
		for {
			var body CharacteristicsBody
			if err := conn.ReadJSON(&body); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logging.Debug("Event stream ended", zap.Error(err))
				}
				return
			}
			for _, v := range body.Characteristics {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bedside/bedside/internal/platform/dashboard"
)

// Sender delivers a message over a single channel.
type Sender interface {
	Name() Channel
	Send(ctx context.Context, msg Message) error
}

// ---------------------------------------------------------------------------
// Dashboard sender
// ---------------------------------------------------------------------------

// DashboardSender broadcasts to ward dashboards over the websocket hub. It is
// the always-on channel and never leaves the process.
type DashboardSender struct {
	hub *dashboard.Hub
}

func NewDashboardSender(hub *dashboard.Hub) *DashboardSender {
	return &DashboardSender{hub: hub}
}

func (s *DashboardSender) Name() Channel { return ChannelDashboard }

func (s *DashboardSender) Send(ctx context.Context, msg Message) error {
	return s.hub.Publish(ctx, dashboard.Event{
		Type:      dashboard.EventCareRequest,
		Ward:      msg.Ward,
		RequestID: msg.RequestID.String(),
		Priority:  string(msg.Priority),
		Message:   msg.Body,
		Timestamp: time.Now().UTC(),
	})
}

// ---------------------------------------------------------------------------
// Gateway senders
// ---------------------------------------------------------------------------

// gatewaySender POSTs the message as JSON to an external delivery gateway.
// Push and SMS share the shape; only the channel name and URL differ.
type gatewaySender struct {
	channel    Channel
	url        string
	httpClient *http.Client
}

// NewPushSender creates a sender that forwards to the push gateway.
func NewPushSender(url string) Sender {
	return &gatewaySender{
		channel:    ChannelPush,
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewSMSSender creates a sender that forwards to the SMS gateway.
func NewSMSSender(url string) Sender {
	return &gatewaySender{
		channel:    ChannelSMS,
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *gatewaySender) Name() Channel { return s.channel }

func (s *gatewaySender) Send(ctx context.Context, msg Message) error {
	if s.url == "" {
		return fmt.Errorf("%s gateway is not configured", s.channel)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx response: %d", resp.StatusCode)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock sender (test double)
// ---------------------------------------------------------------------------

// MockSender records calls and optionally fails, for exercising the dispatcher
// without real channels.
type MockSender struct {
	Channel    Channel
	ShouldFail bool
	FailError  string

	mu    sync.Mutex
	calls []Message
}

func (m *MockSender) Name() Channel { return m.Channel }

func (m *MockSender) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, msg)
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded messages.
func (m *MockSender) Calls() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.calls))
	copy(out, m.calls)
	return out
}

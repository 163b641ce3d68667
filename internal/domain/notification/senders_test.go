package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bedside/bedside/internal/domain/triage"
	"github.com/bedside/bedside/internal/platform/dashboard"
)

func TestDashboardSender_Send(t *testing.T) {
	hub := dashboard.NewHub(zerolog.Nop())
	s := NewDashboardSender(hub)

	msg := Message{
		RequestID: uuid.New(),
		PatientID: uuid.New(),
		Ward:      "ward-3",
		Priority:  triage.UrgencyHigh,
		Body:      "[high] Margaret Hale (ward-3 room 302): I need help",
	}
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name() != ChannelDashboard {
		t.Errorf("expected dashboard channel, got %s", s.Name())
	}
}

func TestGatewaySender_Unconfigured(t *testing.T) {
	s := NewPushSender("")
	err := s.Send(context.Background(), Message{RequestID: uuid.New()})
	if err == nil {
		t.Fatal("expected error for unconfigured gateway")
	}
}

package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/bedside/bedside/internal/domain/triage"
)

// Channel is the delivery path for a staff notification.
type Channel string

const (
	ChannelDashboard Channel = "dashboard"
	ChannelPush      Channel = "push"
	ChannelSMS       Channel = "sms"
)

// Delivery status of a notification record.
const (
	StatusPending  = "pending"
	StatusRetrying = "retrying"
	StatusSent     = "sent"
	StatusFailed   = "failed"
)

// Recipient identifies a staff member (or a logical target such as the
// emergency response team) that should be notified about a request.
type Recipient struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Message is the payload handed to channel senders.
type Message struct {
	RequestID uuid.UUID      `json:"request_id"`
	PatientID uuid.UUID      `json:"patient_id"`
	Ward      string         `json:"ward"`
	Priority  triage.Urgency `json:"priority"`
	Body      string         `json:"body"`
	Recipient Recipient      `json:"recipient"`
}

// Record maps to the notifications table. One row per recipient per channel;
// the status column tracks the delivery attempt lifecycle.
type Record struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	RequestID     uuid.UUID  `db:"request_id" json:"request_id"`
	RecipientID   string     `db:"recipient_id" json:"recipient_id"`
	RecipientRole string     `db:"recipient_role" json:"recipient_role"`
	Channel       Channel    `db:"channel" json:"channel"`
	Priority      string     `db:"priority" json:"priority"`
	Status        string     `db:"status" json:"status"`
	Attempts      int        `db:"attempts" json:"attempts"`
	LastError     *string    `db:"last_error" json:"last_error,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	SentAt        *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

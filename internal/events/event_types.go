package events

import (
	"time"

	"github.com/spec-kit/registration-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketBooked             EventType = "ticket_booked"
	EventTicketCancelled          EventType = "ticket_cancelled"
	EventApplicationStatusChanged EventType = "application_status_changed"
	EventPhaseTwoSubmitted        EventType = "phase_two_submitted"
	EventMembershipCreated        EventType = "membership_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketBookedPayload payload.
type TicketBookedPayload struct {
	EventID      string `json:"event_id"`
	UserID       string `json:"user_id"`
	TicketNumber string `json:"ticket_number"`
	Price        int64  `json:"price"`
}

// ApplicationStatusChangedPayload payload.
type ApplicationStatusChangedPayload struct {
	UserID    string                   `json:"user_id"`
	UserEmail string                   `json:"user_email"`
	OldStatus domain.ApplicationStatus `json:"old_status"`
	NewStatus domain.ApplicationStatus `json:"new_status"`
	Feedback  string                   `json:"feedback,omitempty"`
}

// PhaseTwoSubmittedPayload payload.
type PhaseTwoSubmittedPayload struct {
	UserID        string `json:"user_id"`
	PaymentID     string `json:"payment_id,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

// MembershipCreatedPayload payload.
type MembershipCreatedPayload struct {
	UserID       string `json:"user_id"`
	MemberID     string `json:"member_id"`
	TicketNumber string `json:"ticket_number"`
}

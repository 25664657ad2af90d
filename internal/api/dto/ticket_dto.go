package dto

import (
	"time"

	"github.com/spec-kit/registration-service/internal/domain"
)

// BookEventRequest is the phase 1 booking payload.
type BookEventRequest struct {
	RegistrationData RegistrationDataRequest `json:"registration_data"`
}

// RegistrationDataRequest mirrors the registration sub-record on input.
type RegistrationDataRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Bio         string `json:"bio"`
	PhotoURL    string `json:"photo_url"`
	DocumentURL string `json:"document_url"`
	VideoURL    string `json:"video_url"`
}

// PhaseTwoRequest is the detailed paid submission payload.
type PhaseTwoRequest struct {
	Height        string `json:"height"`
	Weight        string `json:"weight"`
	Bust          string `json:"bust"`
	Waist         string `json:"waist"`
	Hips          string `json:"hips"`
	Address       string `json:"address"`
	City          string `json:"city"`
	PaymentID     string `json:"payment_id"`
	PaymentStatus string `json:"payment_status"`
	PaymentAmount *int64 `json:"payment_amount"`
}

// UpdateStatusRequest is the admin review payload.
type UpdateStatusRequest struct {
	Status   domain.ApplicationStatus `json:"status"`
	Feedback string                   `json:"feedback"`
}

// TicketResponse is the public ticket shape.
type TicketResponse struct {
	ID                string                   `json:"id"`
	TicketNumber      string                   `json:"ticket_number"`
	EventID           *string                  `json:"event_id,omitempty"`
	Price             int64                    `json:"price"`
	QRCode            string                   `json:"qr_code"`
	Status            domain.TicketStatus      `json:"status"`
	ApplicationStatus domain.ApplicationStatus `json:"application_status"`
	AdminFeedback     string                   `json:"admin_feedback,omitempty"`
	RegistrationData  domain.RegistrationData  `json:"registration_data"`
	Event             *EventResponse           `json:"event,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// AdminTicketResponse adds the owner id for console listings.
type AdminTicketResponse struct {
	TicketResponse
	UserID string `json:"user_id"`
}

// StatsResponse buckets ticket counts.
type StatsResponse struct {
	Pending     int64 `json:"pending"`
	Shortlisted int64 `json:"shortlisted"`
	Rejected    int64 `json:"rejected"`
	Completed   int64 `json:"completed"`
	Cancelled   int64 `json:"cancelled"`
	Total       int64 `json:"total"`
}

// ReviewHistoryResponse is an audit trail entry.
type ReviewHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.ReviewChangeType `json:"change_type"`
	ChangedByID *string                 `json:"changed_by_id,omitempty"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

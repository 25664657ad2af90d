package domain

import "time"

// TicketStatus is the payment/attendance lifecycle of a ticket. It is
// orthogonal to ApplicationStatus and the two must not be conflated.
type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "PENDING"
	TicketStatusConfirmed TicketStatus = "CONFIRMED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
	TicketStatusUsed      TicketStatus = "USED"
)

// ApplicationStatus is the review-workflow lifecycle of a ticket.
type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "PENDING"
	ApplicationStatusShortlisted ApplicationStatus = "SHORTLISTED"
	ApplicationStatusRejected    ApplicationStatus = "REJECTED"
	ApplicationStatusCompleted   ApplicationStatus = "COMPLETED"
)

// Ticket is the central aggregate. A nil EventID marks a membership
// ticket (one per verified user, price 0); a non-nil EventID marks an
// event booking subject to capacity and dedup invariants.
type Ticket struct {
	ID                string
	TicketNumber      string
	UserID            string
	EventID           *string
	Price             int64
	QRCode            string
	Status            TicketStatus
	ApplicationStatus ApplicationStatus
	AdminFeedback     string
	RegistrationData  RegistrationData
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Event is populated on read paths that join the events table.
	Event *Event
}

// IsMembership reports whether the ticket is the user's membership ticket.
func (t *Ticket) IsMembership() bool {
	return t.EventID == nil
}

// IsActive reports whether the ticket counts against capacity and the
// one-per-user-per-event invariant.
func (t *Ticket) IsActive() bool {
	return t.Status != TicketStatusCancelled
}

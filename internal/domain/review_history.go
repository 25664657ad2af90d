package domain

import "time"

// ReviewChangeType captures what changed in an audit entry.
type ReviewChangeType string

const (
	ChangeTypeApplicationStatus ReviewChangeType = "APPLICATION_STATUS"
	ChangeTypeTicketStatus      ReviewChangeType = "TICKET_STATUS"
	ChangeTypePhaseTwo          ReviewChangeType = "PHASE_TWO_SUBMISSION"
)

// ReviewHistory is an immutable audit trail entry for ticket mutations
// made by the review workflow.
type ReviewHistory struct {
	ID          string
	TicketID    string
	ChangedByID *string
	ChangeType  ReviewChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}

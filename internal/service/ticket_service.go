package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/events"
	"github.com/spec-kit/registration-service/internal/repository"
	apperrors "github.com/spec-kit/registration-service/pkg/util"
)

// Actor is the explicit authorization context threaded into each
// operation: the caller's id and role, resolved by the identity layer.
type Actor struct {
	ID   string
	Role domain.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// TicketService owns the review-status state machine and the phase 2
// submission flow. The ticket is the source of truth for
// applicationStatus; the user record carries a best-effort mirror that is
// refreshed after every transition but never rolls a transition back.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.ReviewHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.ReviewHistoryRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// AdminListInput describes admin search parameters.
type AdminListInput struct {
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      string
	SortAsc     bool
	Page        int
	Limit       int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// allowedTransitions is the reviewed transition set: rejected and
// completed are terminal, and phase 2 completion requires a prior
// shortlisting.
var allowedTransitions = map[domain.ApplicationStatus][]domain.ApplicationStatus{
	domain.ApplicationStatusPending:     {domain.ApplicationStatusShortlisted, domain.ApplicationStatusRejected},
	domain.ApplicationStatusShortlisted: {domain.ApplicationStatusCompleted, domain.ApplicationStatusRejected},
	domain.ApplicationStatusRejected:    {},
	domain.ApplicationStatusCompleted:   {},
}

func isValidTransition(current, next domain.ApplicationStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func isKnownStatus(status domain.ApplicationStatus) bool {
	_, ok := allowedTransitions[status]
	return ok
}

// Transition moves a ticket to a new review status. Admin only. The
// ticket write is atomic; the user mirror and the notification are
// best-effort side effects of an already-committed transition.
func (s *TicketService) Transition(ctx context.Context, actor Actor, ticketID string, newStatus domain.ApplicationStatus, feedback string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if !isKnownStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown application status", map[string]any{"status": newStatus})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if !isValidTransition(ticket.ApplicationStatus, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.ApplicationStatus,
			"to":   newStatus,
		})
	}

	oldStatus := ticket.ApplicationStatus
	ticket.ApplicationStatus = newStatus
	ticket.AdminFeedback = feedback
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	user := s.mirrorUserStatus(ctx, ticket.UserID, newStatus)
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeApplicationStatus,
		map[string]any{"application_status": oldStatus},
		map[string]any{"application_status": newStatus, "feedback": feedback})

	userEmail := ""
	if user != nil {
		userEmail = user.Email
	}
	s.publish(ctx, events.Event{
		Type:     events.EventApplicationStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.ApplicationStatusChangedPayload{
			UserID:    ticket.UserID,
			UserEmail: userEmail,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Feedback:  feedback,
		},
	})
	return ticket, nil
}

// SubmitPhaseTwo merges the detailed registration payload into the ticket
// and completes the application. The caller must own the ticket or be an
// admin, and the ticket must have been shortlisted; resubmission after
// completion is allowed so a retried identical payload is a no-op.
func (s *TicketService) SubmitPhaseTwo(ctx context.Context, actor Actor, ticketID string, payload domain.RegistrationData) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if ticket.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}
	if ticket.ApplicationStatus != domain.ApplicationStatusShortlisted &&
		ticket.ApplicationStatus != domain.ApplicationStatusCompleted {
		return nil, apperrors.NewConflict("ticket is not shortlisted for phase 2", map[string]any{
			"application_status": ticket.ApplicationStatus,
		})
	}

	oldStatus := ticket.ApplicationStatus
	ticket.RegistrationData = ticket.RegistrationData.Merge(payload)
	ticket.ApplicationStatus = domain.ApplicationStatusCompleted
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.mirrorUserStatus(ctx, ticket.UserID, domain.ApplicationStatusCompleted)
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypePhaseTwo,
		map[string]any{"application_status": oldStatus},
		map[string]any{"application_status": domain.ApplicationStatusCompleted, "payment_id": payload.PaymentID})

	s.publish(ctx, events.Event{
		Type:     events.EventPhaseTwoSubmitted,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.PhaseTwoSubmittedPayload{
			UserID:        ticket.UserID,
			PaymentID:     payload.PaymentID,
			PaymentStatus: payload.PaymentStatus,
		},
	})
	return ticket, nil
}

// CancelTicket cancels an event ticket on the payment axis, freeing
// capacity. The review status is untouched.
func (s *TicketService) CancelTicket(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if ticket.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}
	if ticket.IsMembership() {
		return nil, apperrors.NewConflict("membership tickets cannot be cancelled", nil)
	}
	if ticket.Status == domain.TicketStatusCancelled {
		return nil, apperrors.NewConflict("ticket already cancelled", nil)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusCancelled
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeTicketStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": domain.TicketStatusCancelled})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCancelled,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
	})
	return ticket, nil
}

// ListOwn returns the caller's tickets, event-populated.
func (s *TicketService) ListOwn(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return s.tickets.ListByUser(ctx, userID)
}

// ListAdmin returns tickets matching the admin search.
func (s *TicketService) ListAdmin(ctx context.Context, input AdminListInput) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, adminFilter(input))
}

// Stats returns status-bucketed counts honoring the admin search filters.
func (s *TicketService) Stats(ctx context.Context, input AdminListInput) (repository.StatusCounts, error) {
	return s.tickets.CountByStatus(ctx, adminFilter(input))
}

// History returns the review audit trail for a ticket.
func (s *TicketService) History(ctx context.Context, ticketID string, limit, offset int) ([]domain.ReviewHistory, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return s.history.ListByTicket(ctx, ticketID, limit, offset)
}

func adminFilter(input AdminListInput) repository.TicketFilter {
	filter := repository.TicketFilter{
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
		SortBy:      input.SortBy,
		SortAsc:     input.SortAsc,
		Limit:       input.Limit,
	}
	if input.Search != "" {
		search := input.Search
		filter.SearchTerm = &search
	}
	if input.Page > 1 && input.Limit > 0 {
		filter.Offset = (input.Page - 1) * input.Limit
	}
	return filter
}

// mirrorUserStatus refreshes the denormalized user copy. Failure is
// logged and swallowed: the ticket transition has already committed.
func (s *TicketService) mirrorUserStatus(ctx context.Context, userID string, status domain.ApplicationStatus) *domain.User {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("status mirror: user load failed",
			zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if err := s.users.SetApplicationStatus(ctx, userID, status); err != nil {
		s.logger.Warn("status mirror: user update failed",
			zap.String("user_id", userID), zap.Error(err))
		return user
	}
	user.ApplicationStatus = status
	return user
}

func (s *TicketService) recordHistory(ctx context.Context, actor Actor, ticketID string, changeType domain.ReviewChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	actorID := actor.ID
	entry := &domain.ReviewHistory{
		TicketID:    ticketID,
		ChangedByID: &actorID,
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("review history write failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

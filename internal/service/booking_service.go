package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/events"
	"github.com/spec-kit/registration-service/internal/observability"
	"github.com/spec-kit/registration-service/internal/repository"
	apperrors "github.com/spec-kit/registration-service/pkg/util"
)

// BookingService is the availability guard: it decides whether an event
// ticket may be created and, on success, creates it. Capacity and the
// one-ticket-per-user-per-event invariant are enforced atomically by the
// ticket store; this service maps violations onto the public error
// taxonomy and fires the booked event.
type BookingService struct {
	tickets    repository.TicketRepository
	eventsRepo repository.EventRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// BookingDependencies bundles requirements for the booking service.
type BookingDependencies struct {
	TicketRepo repository.TicketRepository
	EventRepo  repository.EventRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewBookingService constructs the service.
func NewBookingService(deps BookingDependencies) *BookingService {
	return &BookingService{
		tickets:    deps.TicketRepo,
		eventsRepo: deps.EventRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// BookEvent creates an event ticket for the user. Failure paths leave no
// partial writes.
func (s *BookingService) BookEvent(ctx context.Context, userID, eventID string, reg domain.RegistrationData) (*domain.Ticket, error) {
	if err := validateRegistration(reg); err != nil {
		return nil, err
	}

	event, err := s.eventsRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("event", map[string]any{"event_id": eventID})
		}
		return nil, err
	}
	if !event.IsActive {
		return nil, apperrors.NewNotFound("event", map[string]any{"event_id": eventID})
	}

	ticket := &domain.Ticket{
		TicketNumber:      generateEventTicketNumber(),
		UserID:            userID,
		EventID:           &event.ID,
		Price:             event.Price,
		QRCode:            uuid.NewString(),
		Status:            domain.TicketStatusConfirmed,
		ApplicationStatus: domain.ApplicationStatusPending,
		RegistrationData:  reg,
	}

	if err := s.tickets.Book(ctx, ticket); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityExceeded):
			s.metrics.RecordBooking(eventID, "capacity_exceeded")
			return nil, apperrors.NewCapacityExceeded(eventID)
		case errors.Is(err, repository.ErrDuplicateBooking):
			s.metrics.RecordBooking(eventID, "duplicate")
			return nil, apperrors.NewDuplicateBooking(eventID)
		case errors.Is(err, repository.ErrEventInactive), errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("event", map[string]any{"event_id": eventID})
		default:
			return nil, err
		}
	}

	s.metrics.RecordBooking(eventID, "booked")
	s.publish(ctx, events.Event{
		Type:     events.EventTicketBooked,
		TicketID: ticket.ID,
		ActorID:  userID,
		Payload: events.TicketBookedPayload{
			EventID:      event.ID,
			UserID:       userID,
			TicketNumber: ticket.TicketNumber,
			Price:        ticket.Price,
		},
	})
	return ticket, nil
}

func validateRegistration(reg domain.RegistrationData) error {
	missing := map[string]any{}
	if strings.TrimSpace(reg.Name) == "" {
		missing["name"] = "required"
	}
	if strings.TrimSpace(reg.Email) == "" {
		missing["email"] = "required"
	}
	if strings.TrimSpace(reg.Phone) == "" {
		missing["phone"] = "required"
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("registration fields missing", missing)
	}
	return nil
}

// generateEventTicketNumber mints a unique human-readable booking number.
// The contract is uniqueness, not the scheme.
func generateEventTicketNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("EVT-%s-%s", time.Now().UTC().Format("20060102150405"), suffix)
}

func (s *BookingService) publish(ctx context.Context, event events.Event) {
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

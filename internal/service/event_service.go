package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/repository"
	apperrors "github.com/spec-kit/registration-service/pkg/util"
)

// EventService manages the event catalogue. Deactivation is the only
// delete: queries over the public surface filter on is_active.
type EventService struct {
	events repository.EventRepository
}

// NewEventService constructs the service.
func NewEventService(eventRepo repository.EventRepository) *EventService {
	return &EventService{events: eventRepo}
}

// EventCreateInput describes event creation payload.
type EventCreateInput struct {
	Title       string
	Description string
	Venue       string
	StartsAt    time.Time
	Price       int64
	Capacity    int
}

// EventUpdateInput carries optional updates; nil fields are untouched.
type EventUpdateInput struct {
	Title       *string
	Description *string
	Venue       *string
	StartsAt    *time.Time
	Price       *int64
	Capacity    *int
	IsActive    *bool
}

// Create registers a new event.
func (s *EventService) Create(ctx context.Context, input EventCreateInput) (*domain.Event, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if input.Capacity <= 0 {
		return nil, apperrors.NewValidationError("capacity must be positive", nil)
	}
	if input.StartsAt.IsZero() {
		return nil, apperrors.NewValidationError("starts_at required", nil)
	}

	event := &domain.Event{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Venue:       input.Venue,
		StartsAt:    input.StartsAt,
		Price:       input.Price,
		Capacity:    input.Capacity,
		IsActive:    true,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	event.AvailableTickets = event.Capacity
	return event, nil
}

// Update applies partial changes, including deactivation.
func (s *EventService) Update(ctx context.Context, eventID string, input EventUpdateInput) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("event", map[string]any{"event_id": eventID})
		}
		return nil, err
	}

	if input.Title != nil {
		event.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.Venue != nil {
		event.Venue = *input.Venue
	}
	if input.StartsAt != nil {
		event.StartsAt = *input.StartsAt
	}
	if input.Price != nil {
		event.Price = *input.Price
	}
	if input.Capacity != nil {
		if *input.Capacity <= 0 {
			return nil, apperrors.NewValidationError("capacity must be positive", nil)
		}
		event.Capacity = *input.Capacity
	}
	if input.IsActive != nil {
		event.IsActive = *input.IsActive
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get returns an active event with derived availability.
func (s *EventService) Get(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("event", map[string]any{"event_id": eventID})
		}
		return nil, err
	}
	if !event.IsActive {
		return nil, apperrors.NewNotFound("event", map[string]any{"event_id": eventID})
	}
	return event, nil
}

// ListActive returns the public event catalogue.
func (s *EventService) ListActive(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	return s.events.ListActive(ctx, limit, offset)
}

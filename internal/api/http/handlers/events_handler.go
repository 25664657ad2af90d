package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/registration-service/internal/api/dto"
	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/service"
	apperrors "github.com/spec-kit/registration-service/pkg/util"
)

// EventsHandler manages the event catalogue endpoints.
type EventsHandler struct {
	events *service.EventService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(eventService *service.EventService) *EventsHandler {
	return &EventsHandler{events: eventService}
}

// List GET /events.
func (h *EventsHandler) List(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 20)
	result, err := h.events.ListActive(c.UserContext(), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	items := make([]dto.EventResponse, 0, len(result))
	for i := range result {
		items = append(items, eventResponse(&result[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /events/:id.
func (h *EventsHandler) Get(c *fiber.Ctx) error {
	event, err := h.events.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponse(event)})
}

// Create POST /events (admin).
func (h *EventsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	event, err := h.events.Create(c.UserContext(), service.EventCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		Price:       req.Price,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": eventResponse(event)})
}

// Update PATCH /events/:id (admin).
func (h *EventsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	event, err := h.events.Update(c.UserContext(), c.Params("id"), service.EventUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		Price:       req.Price,
		Capacity:    req.Capacity,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponse(event)})
}

func eventResponse(event *domain.Event) dto.EventResponse {
	return dto.EventResponse{
		ID:               event.ID,
		Title:            event.Title,
		Description:      event.Description,
		Venue:            event.Venue,
		StartsAt:         event.StartsAt,
		Price:            event.Price,
		Capacity:         event.Capacity,
		AvailableTickets: event.AvailableTickets,
		IsActive:         event.IsActive,
	}
}

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/registration-service/internal/api/dto"
	"github.com/spec-kit/registration-service/internal/auth"
	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/service"
	apperrors "github.com/spec-kit/registration-service/pkg/util"
)

// TicketsHandler manages end-user ticket endpoints: booking, listing,
// phase 2 submission and cancellation.
type TicketsHandler struct {
	booking *service.BookingService
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(bookingService *service.BookingService, ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{booking: bookingService, tickets: ticketService}
}

// BookEvent POST /events/:id/book.
func (h *TicketsHandler) BookEvent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.BookEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	reg := domain.RegistrationData{
		Name:        req.RegistrationData.Name,
		Email:       req.RegistrationData.Email,
		Phone:       req.RegistrationData.Phone,
		Bio:         req.RegistrationData.Bio,
		PhotoURL:    req.RegistrationData.PhotoURL,
		DocumentURL: req.RegistrationData.DocumentURL,
		VideoURL:    req.RegistrationData.VideoURL,
	}
	ticket, err := h.booking.BookEvent(c.UserContext(), principal.User.ID, c.Params("id"), reg)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListOwn GET /tickets.
func (h *TicketsHandler) ListOwn(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	tickets, err := h.tickets.ListOwn(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SubmitPhaseTwo PATCH /tickets/:id/phase2.
func (h *TicketsHandler) SubmitPhaseTwo(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.PhaseTwoRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	payload := domain.RegistrationData{
		Height:        req.Height,
		Weight:        req.Weight,
		Bust:          req.Bust,
		Waist:         req.Waist,
		Hips:          req.Hips,
		Address:       req.Address,
		City:          req.City,
		PaymentID:     req.PaymentID,
		PaymentStatus: req.PaymentStatus,
		PaymentAmount: req.PaymentAmount,
	}
	actor := service.Actor{ID: principal.User.ID, Role: principal.Role}
	ticket, err := h.tickets.SubmitPhaseTwo(c.UserContext(), actor, c.Params("id"), payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Cancel POST /tickets/:id/cancel.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	actor := service.Actor{ID: principal.User.ID, Role: principal.Role}
	ticket, err := h.tickets.CancelTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:                ticket.ID,
		TicketNumber:      ticket.TicketNumber,
		EventID:           ticket.EventID,
		Price:             ticket.Price,
		QRCode:            ticket.QRCode,
		Status:            ticket.Status,
		ApplicationStatus: ticket.ApplicationStatus,
		AdminFeedback:     ticket.AdminFeedback,
		RegistrationData:  ticket.RegistrationData,
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
	}
	if ticket.Event != nil {
		ev := eventResponse(ticket.Event)
		resp.Event = &ev
	}
	return resp
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

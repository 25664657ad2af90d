package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/registration-service/internal/api/dto"
	"github.com/spec-kit/registration-service/internal/auth"
	"github.com/spec-kit/registration-service/internal/service"
	apperrors "github.com/spec-kit/registration-service/pkg/util"
)

// AdminTicketsHandler exposes the review console endpoints.
type AdminTicketsHandler struct {
	tickets *service.TicketService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(ticketService *service.TicketService) *AdminTicketsHandler {
	return &AdminTicketsHandler{tickets: ticketService}
}

// ListAll GET /tickets/admin/all.
func (h *AdminTicketsHandler) ListAll(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListAdmin(c.UserContext(), parseAdminQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.AdminTicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.AdminTicketResponse{
			TicketResponse: ticketResponse(&tickets[i]),
			UserID:         tickets[i].UserID,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateStatus PATCH /tickets/:id.
func (h *AdminTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	actor := service.Actor{ID: principal.User.ID, Role: principal.Role}
	ticket, err := h.tickets.Transition(c.UserContext(), actor, c.Params("id"), req.Status, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Stats GET /tickets/admin/stats.
func (h *AdminTicketsHandler) Stats(c *fiber.Ctx) error {
	counts, err := h.tickets.Stats(c.UserContext(), parseAdminQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		Pending:     counts.Pending,
		Shortlisted: counts.Shortlisted,
		Rejected:    counts.Rejected,
		Completed:   counts.Completed,
		Cancelled:   counts.Cancelled,
		Total:       counts.Total,
	}})
}

// Export GET /tickets/export.
func (h *AdminTicketsHandler) Export(c *fiber.Ctx) error {
	data, err := h.tickets.ExportCompletedCSV(c.UserContext())
	if err != nil {
		return err
	}
	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", `attachment; filename="completed-tickets.csv"`)
	return c.Send(data)
}

// History GET /tickets/:id/history.
func (h *AdminTicketsHandler) History(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 50)
	entries, err := h.tickets.History(c.UserContext(), c.Params("id"), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	items := make([]dto.ReviewHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.ReviewHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseAdminQuery(c *fiber.Ctx) service.AdminListInput {
	input := service.AdminListInput{
		Search:  c.Query("search"),
		SortBy:  c.Query("sort", "created_at"),
		SortAsc: c.Query("order") == "asc",
		Page:    parseInt(c.Query("page"), 1),
		Limit:   parseInt(c.Query("limit"), 20),
	}
	if from := parseTime(c.Query("date_from")); from != nil {
		input.CreatedFrom = from
	}
	if to := parseTime(c.Query("date_to")); to != nil {
		input.CreatedTo = to
	}
	return input
}

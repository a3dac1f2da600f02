package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// StaffTicketsHandler manages operator ticket endpoints.
type StaffTicketsHandler struct {
	service *service.TicketService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(ticketService *service.TicketService) *StaffTicketsHandler {
	return &StaffTicketsHandler{service: ticketService}
}

// ListTickets GET /staff/tickets.
func (h *StaffTicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewUnauthorized("operator required")
	}
	tickets, err := h.service.ListTickets(c.Context(), actorFromPrincipal(principal))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(h.service, tickets)})
}

// GetTicket GET /staff/tickets/:id.
func (h *StaffTicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewUnauthorized("operator required")
	}
	ticket, err := h.service.GetTicket(c.Context(), actorFromPrincipal(principal), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(h.service, ticket)})
}

// UpdateStatus PATCH /staff/tickets/:id/status.
func (h *StaffTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	ticket, err := h.service.UpdateStatus(c.Context(), actorFromPrincipal(principal), c.Params("id"), req.Status, req.Remarks)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(h.service, ticket)})
}

// ApproveEscalated POST /staff/tickets/:id/approve.
func (h *StaffTicketsHandler) ApproveEscalated(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ApproveEscalated(c.Context(), actorFromPrincipal(principal), c.Params("id"), req.Remarks)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(h.service, ticket)})
}

// RejectEscalated POST /staff/tickets/:id/reject.
func (h *StaffTicketsHandler) RejectEscalated(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.RejectEscalated(c.Context(), actorFromPrincipal(principal), c.Params("id"), req.Remarks)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(h.service, ticket)})
}

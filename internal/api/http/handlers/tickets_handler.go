package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// TicketsHandler manages consumer ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("consumer required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		CustomerName:   req.CustomerName,
		ConsumerNumber: req.ConsumerNumber,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       req.Priority,
		Zone:           req.Zone,
	}
	if input.CustomerName == "" {
		input.CustomerName = principal.User.Name
	}
	if input.ConsumerNumber == "" {
		input.ConsumerNumber = principal.User.ConsumerNumber
	}
	if input.Zone == "" {
		input.Zone = principal.User.Zone
	}

	ticket, err := h.service.CreateTicket(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(h.service, ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("consumer required")
	}
	tickets, err := h.service.ListTickets(c.Context(), actorFromPrincipal(principal))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(h.service, tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("consumer required")
	}
	ticket, err := h.service.GetTicket(c.Context(), actorFromPrincipal(principal), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(h.service, ticket)})
}

// AttachFeedback POST /tickets/:id/feedback.
func (h *TicketsHandler) AttachFeedback(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("consumer required")
	}
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AttachFeedback(c.Context(), actorFromPrincipal(principal), c.Params("id"), req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(h.service, ticket)})
}

func actorFromPrincipal(principal *auth.Principal) service.Actor {
	if principal.Operator != nil {
		return service.Actor{
			Role: principal.Operator.Role,
			Name: principal.Operator.Name,
			Zone: principal.Operator.Zone,
		}
	}
	return service.Actor{
		Role:           domain.RoleConsumer,
		Name:           principal.User.Name,
		ConsumerNumber: principal.User.ConsumerNumber,
		Zone:           principal.User.Zone,
	}
}

func ticketResponse(engine *service.TicketService, ticket *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:             ticket.ID,
		Number:         ticket.Number,
		Title:          ticket.Title,
		Description:    ticket.Description,
		Category:       ticket.Category,
		Priority:       ticket.Priority,
		Status:         ticket.Status,
		CustomerName:   ticket.CustomerName,
		ConsumerNumber: ticket.ConsumerNumber,
		Zone:           ticket.Zone,
		AssignedTo:     ticket.AssignedTo,
		SLA:            engine.SLAStatus(ticket),
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
		EscalatedAt:    ticket.EscalatedAt,
		ResolvedAt:     ticket.ResolvedAt,
		ClosedAt:       ticket.ClosedAt,
	}
	if ticket.Feedback != nil {
		resp.Feedback = &dto.FeedbackResponse{
			Rating:      ticket.Feedback.Rating,
			Comment:     ticket.Feedback.Comment,
			SubmittedAt: ticket.Feedback.SubmittedAt,
		}
	}
	return resp
}

func ticketResponses(engine *service.TicketService, tickets []domain.Ticket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(engine, &tickets[i]))
	}
	return items
}

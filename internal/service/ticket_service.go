package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/sla"
	"github.com/spec-kit/grievance-service/pkg/clock"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// Actor identifies the caller of an engine operation for access scoping.
type Actor struct {
	Role           domain.Role
	Name           string
	ConsumerNumber string
	Zone           string
}

// TicketService is the ticket lifecycle and SLA escalation engine. All
// mutations, manual and automatic, are serialized through one mutex so a
// sweep pass never interleaves with a status update on the same ticket.
type TicketService struct {
	mu         sync.Mutex
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	clock      clock.Clock
	metrics    *observability.Metrics
}

// TicketDependencies bundles collaborators for the engine.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Metrics    *observability.Metrics
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerName   string
	ConsumerNumber string
	Title          string
	Description    string
	Category       domain.TicketCategory
	Priority       domain.TicketPriority
	Zone           string
}

// NewTicketService constructs the engine.
func NewTicketService(deps TicketDependencies) *TicketService {
	c := deps.Clock
	if c == nil {
		c = clock.System()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		clock:      c,
		metrics:    deps.Metrics,
	}
}

// CreateTicket validates input and registers a new OPEN ticket.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	missing := map[string]any{}
	if strings.TrimSpace(input.CustomerName) == "" {
		missing["customer_name"] = "required"
	}
	if strings.TrimSpace(input.ConsumerNumber) == "" {
		missing["consumer_number"] = "required"
	}
	if strings.TrimSpace(input.Title) == "" {
		missing["title"] = "required"
	}
	if strings.TrimSpace(input.Description) == "" {
		missing["description"] = "required"
	}
	if input.Category == "" {
		missing["category"] = "required"
	} else if !domain.ValidCategory(input.Category) {
		missing["category"] = "unknown category"
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing or invalid ticket fields", missing)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(input.Priority)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	ticket := &domain.Ticket{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Category:       input.Category,
		Priority:       priority,
		Status:         domain.TicketStatusOpen,
		CustomerName:   strings.TrimSpace(input.CustomerName),
		ConsumerNumber: strings.TrimSpace(input.ConsumerNumber),
		Zone:           strings.TrimSpace(input.Zone),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketCreated,
		TicketID:     ticket.ID,
		TicketNumber: ticket.Number,
		Payload: events.TicketCreatedPayload{
			CustomerName: ticket.CustomerName,
			Category:     ticket.Category,
			Priority:     ticket.Priority,
			Zone:         ticket.Zone,
			Title:        ticket.Title,
		},
	})
	return ticket, nil
}

// allowedTransitions is the lifecycle table. ESCALATED is additionally
// reachable from OPEN and IN_PROGRESS via the sweep; leaving ESCALATED is
// reserved to department-head review.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusEscalated},
	domain.TicketStatusInProgress: {domain.TicketStatusEscalated, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusEscalated:  {domain.TicketStatusResolved, domain.TicketStatusOpen},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// UpdateStatus applies a manual status transition, rejecting anything
// outside the transition table. A failed update leaves the ticket
// unchanged.
func (s *TicketService) UpdateStatus(ctx context.Context, actor Actor, ticketID string, newStatus domain.TicketStatus, remarks string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStatusLocked(ctx, actor, ticketID, newStatus, remarks)
}

func (s *TicketService) updateStatusLocked(ctx context.Context, actor Actor, ticketID string, newStatus domain.TicketStatus, remarks string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(newStatus))
	}
	if ticket.Status == domain.TicketStatusEscalated && actor.Role != domain.RoleDepartmentHead {
		return nil, apperrors.NewForbidden("escalated tickets require department head review")
	}

	now := s.clock.Now()
	oldStatus := ticket.Status
	ticket.Status = newStatus
	ticket.UpdatedAt = now

	switch newStatus {
	case domain.TicketStatusEscalated:
		if ticket.EscalatedAt == nil {
			escalatedAt := now
			ticket.EscalatedAt = &escalatedAt
		}
	case domain.TicketStatusResolved:
		resolvedAt := now
		ticket.ResolvedAt = &resolvedAt
	case domain.TicketStatusClosed:
		closedAt := now
		ticket.ClosedAt = &closedAt
	}
	if actor.Name != "" && actor.Role == domain.RoleSiteEngineer && ticket.AssignedTo == nil {
		name := actor.Name
		ticket.AssignedTo = &name
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketStatusChanged,
		TicketID:     ticket.ID,
		TicketNumber: ticket.Number,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Remarks:   remarks,
		},
	})
	switch newStatus {
	case domain.TicketStatusEscalated:
		s.publishEvent(ctx, events.Event{
			Type:         events.EventTicketEscalated,
			TicketID:     ticket.ID,
			TicketNumber: ticket.Number,
			Payload: events.TicketEscalatedPayload{
				CustomerName: ticket.CustomerName,
				Priority:     ticket.Priority,
				EscalatedAt:  *ticket.EscalatedAt,
				SLABreached:  false,
			},
		})
	case domain.TicketStatusResolved:
		s.publishEvent(ctx, events.Event{
			Type:         events.EventTicketResolved,
			TicketID:     ticket.ID,
			TicketNumber: ticket.Number,
			Payload: events.TicketResolvedPayload{
				CustomerName: ticket.CustomerName,
				ResolvedAt:   *ticket.ResolvedAt,
			},
		})
	}
	return ticket, nil
}

// ApproveEscalated resolves an escalated ticket after department-head
// review.
func (s *TicketService) ApproveEscalated(ctx context.Context, actor Actor, ticketID, remarks string) (*domain.Ticket, error) {
	if actor.Role != domain.RoleDepartmentHead {
		return nil, apperrors.NewForbidden("department head required")
	}
	return s.UpdateStatus(ctx, actor, ticketID, domain.TicketStatusResolved, remarks)
}

// RejectEscalated reopens an escalated ticket after department-head
// review. EscalatedAt stays set; the ticket has passed through ESCALATED.
func (s *TicketService) RejectEscalated(ctx context.Context, actor Actor, ticketID, remarks string) (*domain.Ticket, error) {
	if actor.Role != domain.RoleDepartmentHead {
		return nil, apperrors.NewForbidden("department head required")
	}
	return s.UpdateStatus(ctx, actor, ticketID, domain.TicketStatusOpen, remarks)
}

// AttachFeedback records the single consumer rating on a resolved ticket.
func (s *TicketService) AttachFeedback(ctx context.Context, actor Actor, ticketID string, rating int, comment string) (*domain.Ticket, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleConsumer && ticket.ConsumerNumber != actor.ConsumerNumber {
		return nil, apperrors.NewForbidden("ticket belongs to another consumer")
	}
	if ticket.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewConflict("feedback requires a resolved ticket",
			map[string]any{"status": string(ticket.Status)})
	}
	if ticket.Feedback != nil {
		return nil, apperrors.NewConflict("feedback already submitted", nil)
	}

	now := s.clock.Now()
	ticket.Feedback = &domain.Feedback{
		Rating:      rating,
		Comment:     strings.TrimSpace(comment),
		SubmittedAt: now,
	}
	ticket.UpdatedAt = now

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventFeedbackSubmitted,
		TicketID:     ticket.ID,
		TicketNumber: ticket.Number,
		Payload: events.FeedbackSubmittedPayload{
			CustomerName: ticket.CustomerName,
			Rating:       rating,
			Comment:      ticket.Feedback.Comment,
		},
	})
	return ticket, nil
}

// SLAStatus is a pure read of a ticket's SLA health at the current time.
func (s *TicketService) SLAStatus(ticket *domain.Ticket) sla.Report {
	return sla.Evaluate(ticket, s.clock.Now())
}

// ListTickets returns tickets visible to the actor: consumers see their
// own, site engineers their zone, department heads everything.
func (s *TicketService) ListTickets(ctx context.Context, actor Actor) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{}
	switch actor.Role {
	case domain.RoleConsumer:
		consumer := actor.ConsumerNumber
		filter.ConsumerNumber = &consumer
	case domain.RoleSiteEngineer:
		zone := actor.Zone
		filter.Zone = &zone
	case domain.RoleDepartmentHead:
		// unscoped
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}
	return s.tickets.List(ctx, filter)
}

// GetTicket fetches one ticket, enforcing the same visibility rules as
// ListTickets.
func (s *TicketService) GetTicket(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleConsumer:
		if ticket.ConsumerNumber != actor.ConsumerNumber {
			return nil, apperrors.NewForbidden("ticket belongs to another consumer")
		}
	case domain.RoleSiteEngineer:
		if ticket.Zone != actor.Zone {
			return nil, apperrors.NewForbidden("ticket outside assigned zone")
		}
	case domain.RoleDepartmentHead:
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}
	return ticket, nil
}

// EscalateBreached is one sweep pass: every OPEN or IN_PROGRESS ticket
// whose SLA window is exhausted transitions to ESCALATED exactly once.
// The pass holds the engine mutex, so it is atomic with respect to manual
// updates and re-running it is a no-op for already escalated tickets.
func (s *TicketService) EscalateBreached(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
	})
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	escalated := 0
	for i := range candidates {
		ticket := &candidates[i]
		if !sla.Breached(ticket, now) {
			continue
		}
		ticket.Status = domain.TicketStatusEscalated
		ticket.UpdatedAt = now
		if ticket.EscalatedAt == nil {
			escalatedAt := now
			ticket.EscalatedAt = &escalatedAt
		}
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return escalated, err
		}
		escalated++

		s.publishEvent(ctx, events.Event{
			Type:         events.EventTicketEscalated,
			TicketID:     ticket.ID,
			TicketNumber: ticket.Number,
			Payload: events.TicketEscalatedPayload{
				CustomerName: ticket.CustomerName,
				Priority:     ticket.Priority,
				EscalatedAt:  *ticket.EscalatedAt,
				SLABreached:  true,
			},
		})
	}

	s.metrics.RecordSweep(escalated)
	return escalated, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// Clock exposes the engine clock for collaborators that must agree on
// time (notification timestamps).
func (s *TicketService) Clock() clock.Clock {
	return s.clock
}

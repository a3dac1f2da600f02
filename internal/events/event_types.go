package events

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventTicketResolved      EventType = "ticket_resolved"
	EventFeedbackSubmitted   EventType = "feedback_submitted"
)

// Event represents a domain event emitted by the ticket engine.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TicketID     string      `json:"ticket_id"`
	TicketNumber string      `json:"ticket_number"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerName string                `json:"customer_name"`
	Category     domain.TicketCategory `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	Zone         string                `json:"zone"`
	Title        string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Remarks   string              `json:"remarks,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	CustomerName string                `json:"customer_name"`
	Priority     domain.TicketPriority `json:"priority"`
	EscalatedAt  time.Time             `json:"escalated_at"`
	SLABreached  bool                  `json:"sla_breached"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	CustomerName string    `json:"customer_name"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// FeedbackSubmittedPayload payload.
type FeedbackSubmittedPayload struct {
	CustomerName string `json:"customer_name"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment,omitempty"`
}

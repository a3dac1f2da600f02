package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/sla"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerName   string                `json:"customer_name"`
	ConsumerNumber string                `json:"consumer_number"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Category       domain.TicketCategory `json:"category"`
	Priority       domain.TicketPriority `json:"priority"`
	Zone           string                `json:"zone"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Remarks string              `json:"remarks"`
}

// ReviewRequest carries department-head approval/rejection remarks.
type ReviewRequest struct {
	Remarks string `json:"remarks"`
}

// FeedbackRequest payload.
type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// FeedbackResponse attached rating.
type FeedbackResponse struct {
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// TicketResponse provides full ticket info including live SLA health.
type TicketResponse struct {
	ID             string                `json:"id"`
	Number         string                `json:"number"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Category       domain.TicketCategory `json:"category"`
	Priority       domain.TicketPriority `json:"priority"`
	Status         domain.TicketStatus   `json:"status"`
	CustomerName   string                `json:"customer_name"`
	ConsumerNumber string                `json:"consumer_number"`
	Zone           string                `json:"zone"`
	AssignedTo     *string               `json:"assigned_to,omitempty"`
	Feedback       *FeedbackResponse     `json:"feedback,omitempty"`
	SLA            sla.Report            `json:"sla"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	EscalatedAt    *time.Time            `json:"escalated_at,omitempty"`
	ResolvedAt     *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt       *time.Time            `json:"closed_at,omitempty"`
}

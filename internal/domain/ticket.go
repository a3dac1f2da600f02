package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for grievance tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusEscalated  TicketStatus = "ESCALATED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityLow    TicketPriority = "LOW"
)

// TicketCategory classifies the nature of the grievance.
type TicketCategory string

const (
	TicketCategoryComplaint    TicketCategory = "COMPLAINT"
	TicketCategoryMaintenance  TicketCategory = "MAINTENANCE"
	TicketCategoryEnergyTheft  TicketCategory = "ENERGY_THEFT"
	TicketCategoryGeneralQuery TicketCategory = "GENERAL_QUERY"
)

// Feedback is the single consumer rating attached to a resolved ticket.
type Feedback struct {
	Rating      int
	Comment     string
	SubmittedAt time.Time
}

// Ticket is the aggregate for customer grievances. Priority is fixed at
// creation. EscalatedAt is set exactly once, when the ticket first enters
// ESCALATED, and is never cleared afterwards.
type Ticket struct {
	ID             string
	Seq            int64
	Number         string
	Title          string
	Description    string
	Category       TicketCategory
	Priority       TicketPriority
	Status         TicketStatus
	CustomerName   string
	ConsumerNumber string
	Zone           string
	AssignedTo     *string
	Feedback       *Feedback
	CreatedAt      time.Time
	UpdatedAt      time.Time
	EscalatedAt    *time.Time
	ResolvedAt     *time.Time
	ClosedAt       *time.Time
}

// FormatTicketNumber renders the human-readable sequential ticket number.
func FormatTicketNumber(seq int64) string {
	return fmt.Sprintf("GRV-%06d", seq)
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c TicketCategory) bool {
	switch c {
	case TicketCategoryComplaint, TicketCategoryMaintenance, TicketCategoryEnergyTheft, TicketCategoryGeneralQuery:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further SLA breach.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

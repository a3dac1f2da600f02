// Package sla computes service-level health for grievance tickets. The
// evaluation is a pure function of a ticket and a wall-clock instant so
// callers (HTTP reads, the escalation sweep, tests) can share one
// implementation without hidden time dependencies.
package sla

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Status enumerates SLA health bands.
type Status string

const (
	StatusOnTime   Status = "ON_TIME"
	StatusAtRisk   Status = "AT_RISK"
	StatusBreached Status = "BREACHED"
)

// atRiskPercentage is the start of the warning band: the last 20% of the
// SLA window.
const atRiskPercentage = 80

// thresholds maps priority to the maximum time a ticket may stay
// unresolved. Fixed policy, not runtime configurable.
var thresholds = map[domain.TicketPriority]time.Duration{
	domain.TicketPriorityHigh:   24 * time.Hour,
	domain.TicketPriorityMedium: 72 * time.Hour,
	domain.TicketPriorityLow:    168 * time.Hour,
}

// Threshold returns the SLA window for a priority. Unknown priorities fall
// back to the medium window.
func Threshold(priority domain.TicketPriority) time.Duration {
	if d, ok := thresholds[priority]; ok {
		return d
	}
	return thresholds[domain.TicketPriorityMedium]
}

// Report describes a ticket's SLA health at a point in time.
type Report struct {
	Status     Status  `json:"status"`
	Percentage float64 `json:"percentage"`
}

// Evaluate computes the SLA report for a ticket as of now. Terminal
// tickets never breach retroactively. For non-terminal tickets the result
// is monotonically non-decreasing in elapsed time.
func Evaluate(ticket *domain.Ticket, now time.Time) Report {
	if ticket.Status.Terminal() {
		return Report{Status: StatusOnTime, Percentage: 100}
	}

	elapsed := now.Sub(ticket.CreatedAt)
	window := Threshold(ticket.Priority)

	percentage := float64(elapsed) / float64(window) * 100
	if percentage < 0 {
		percentage = 0
	}
	if percentage >= 100 {
		return Report{Status: StatusBreached, Percentage: 100}
	}
	if percentage >= atRiskPercentage {
		return Report{Status: StatusAtRisk, Percentage: percentage}
	}
	return Report{Status: StatusOnTime, Percentage: percentage}
}

// Breached reports whether the ticket has exhausted its SLA window as of
// now.
func Breached(ticket *domain.Ticket, now time.Time) bool {
	return Evaluate(ticket, now).Status == StatusBreached
}

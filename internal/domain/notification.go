package domain

import "time"

// NotificationType enumerates the state changes a notification can describe.
type NotificationType string

const (
	NotificationTicketCreated   NotificationType = "ticket_created"
	NotificationTicketEscalated NotificationType = "ticket_escalated"
	NotificationTicketResolved  NotificationType = "ticket_resolved"
	NotificationLowRating       NotificationType = "low_rating"
)

// Notification is a fire-and-forget record of a ticket state change.
// Records are append-only; the only mutation ever applied is clearing the
// Unread flag.
type Notification struct {
	ID           string
	Type         NotificationType
	Title        string
	Message      string
	TicketID     string
	TicketNumber string
	TargetRoles  []Role
	Unread       bool
	CreatedAt    time.Time
}

// VisibleTo reports whether the notification targets the given role.
func (n *Notification) VisibleTo(role Role) bool {
	for _, target := range n.TargetRoles {
		if target == role {
			return true
		}
	}
	return false
}

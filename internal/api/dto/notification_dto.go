package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// NotificationResponse inbox entry.
type NotificationResponse struct {
	ID           string                  `json:"id"`
	Type         domain.NotificationType `json:"type"`
	Title        string                  `json:"title"`
	Message      string                  `json:"message"`
	TicketID     string                  `json:"ticket_id"`
	TicketNumber string                  `json:"ticket_number"`
	Unread       bool                    `json:"unread"`
	CreatedAt    time.Time               `json:"created_at"`
}

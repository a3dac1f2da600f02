package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// lowRatingThreshold: consumer ratings at or below this raise a
// department-head alert.
const lowRatingThreshold = 2

// NotificationService turns domain events into notification records and
// delivery stubs. Delivery is synchronous with the emitting operation;
// records are append-only.
type NotificationService struct {
	dispatcher    events.Dispatcher
	notifications repository.NotificationRepository
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifications repository.NotificationRepository, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:    dispatcher,
		notifications: notifications,
		logger:        logger,
		cfg:           cfg,
	}
}

// RegisterHandlers subscribes to engine events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventTicketResolved, n.handleTicketResolved)
	n.dispatcher.Subscribe(events.EventFeedbackSubmitted, n.handleFeedbackSubmitted)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

// ListForRole returns notifications targeted at the given role, newest
// first.
func (n *NotificationService) ListForRole(ctx context.Context, role domain.Role) ([]domain.Notification, error) {
	return n.notifications.ListByRole(ctx, role)
}

// MarkRead clears the unread flag, the only mutation notifications ever
// receive.
func (n *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := n.notifications.MarkRead(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return err
	}
	return nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.String("ticket_number", event.TicketNumber))
	err := n.append(ctx, event, domain.NotificationTicketCreated,
		"New Ticket Raised",
		fmt.Sprintf("Ticket %s (%s) raised by %s", event.TicketNumber, payload.Category, payload.CustomerName),
		[]domain.Role{domain.RoleSiteEngineer, domain.RoleDepartmentHead})
	n.sendEmailStub(event)
	n.sendWebhookStub(event)
	return err
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return nil
	}
	title := "Ticket Escalated"
	message := fmt.Sprintf("Ticket %s has been escalated for review", event.TicketNumber)
	if payload.SLABreached {
		title = "Ticket Escalated - SLA Breach"
		message = fmt.Sprintf("Ticket %s has been escalated due to SLA breach", event.TicketNumber)
	}
	n.logger.Warn("TicketEscalated",
		zap.String("ticket_id", event.TicketID),
		zap.String("ticket_number", event.TicketNumber),
		zap.String("priority", string(payload.Priority)),
		zap.Bool("sla_breached", payload.SLABreached))
	err := n.append(ctx, event, domain.NotificationTicketEscalated, title, message,
		[]domain.Role{domain.RoleDepartmentHead})
	n.sendEmailStub(event)
	n.sendWebhookStub(event)
	return err
}

func (n *NotificationService) handleTicketResolved(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketResolved", zap.String("ticket_id", event.TicketID), zap.String("ticket_number", event.TicketNumber))
	err := n.append(ctx, event, domain.NotificationTicketResolved,
		"Ticket Resolved",
		fmt.Sprintf("Ticket %s has been resolved", event.TicketNumber),
		[]domain.Role{domain.RoleConsumer})
	n.sendEmailStub(event)
	return err
}

func (n *NotificationService) handleFeedbackSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.FeedbackSubmittedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("FeedbackSubmitted",
		zap.String("ticket_id", event.TicketID),
		zap.Int("rating", payload.Rating))
	if payload.Rating > lowRatingThreshold {
		return nil
	}
	return n.append(ctx, event, domain.NotificationLowRating,
		"Low Rating Alert",
		fmt.Sprintf("Ticket %s received a rating of %d from %s", event.TicketNumber, payload.Rating, payload.CustomerName),
		[]domain.Role{domain.RoleDepartmentHead})
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Debug("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(event)
	return nil
}

func (n *NotificationService) append(ctx context.Context, event events.Event, notifType domain.NotificationType, title, message string, targets []domain.Role) error {
	record := &domain.Notification{
		ID:           uuid.NewString(),
		Type:         notifType,
		Title:        title,
		Message:      message,
		TicketID:     event.TicketID,
		TicketNumber: event.TicketNumber,
		TargetRoles:  targets,
		Unread:       true,
		CreatedAt:    event.Timestamp,
	}
	if err := n.notifications.Append(ctx, record); err != nil {
		n.logger.Error("append notification", zap.Error(err), zap.String("ticket_id", event.TicketID))
		return err
	}
	return nil
}

func (n *NotificationService) sendEmailStub(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookStub(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/sla"
	"github.com/spec-kit/grievance-service/pkg/clock"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

var (
	consumerActor = Actor{Role: domain.RoleConsumer, Name: "Asha Patel", ConsumerNumber: "CN-1001", Zone: "north"}
	engineerActor = Actor{Role: domain.RoleSiteEngineer, Name: "Ravi Kumar", Zone: "north"}
	headActor     = Actor{Role: domain.RoleDepartmentHead, Name: "Meera Iyer"}
)

type engineFixture struct {
	engine        *TicketService
	notifications *NotificationService
	store         *repository.MemoryStore
	clock         *clock.Manual
	metrics       *observability.Metrics
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	store := repository.NewMemoryStore()
	manual := clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notifications := NewNotificationService(dispatcher, store.Notifications(), zap.NewNop(), config.NotificationConfig{})
	notifications.RegisterHandlers()

	engine := NewTicketService(TicketDependencies{
		TicketRepo: store.Tickets(),
		Dispatcher: dispatcher,
		Clock:      manual,
		Metrics:    metrics,
	})

	return &engineFixture{
		engine:        engine,
		notifications: notifications,
		store:         store,
		clock:         manual,
		metrics:       metrics,
	}
}

func (f *engineFixture) createTicket(t *testing.T, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()

	ticket, err := f.engine.CreateTicket(context.Background(), TicketCreateInput{
		CustomerName:   consumerActor.Name,
		ConsumerNumber: consumerActor.ConsumerNumber,
		Title:          "No power since morning",
		Description:    "Complete outage in the block",
		Category:       domain.TicketCategoryComplaint,
		Priority:       priority,
		Zone:           "north",
	})
	require.NoError(t, err)
	return ticket
}

func (f *engineFixture) notificationsFor(t *testing.T, role domain.Role) []domain.Notification {
	t.Helper()

	list, err := f.notifications.ListForRole(context.Background(), role)
	require.NoError(t, err)
	return list
}

func TestCreateTicket(t *testing.T) {
	t.Run("creates an open ticket with a sequential number", func(t *testing.T) {
		f := newEngineFixture(t)

		first := f.createTicket(t, domain.TicketPriorityHigh)
		second := f.createTicket(t, domain.TicketPriorityLow)

		assert.Equal(t, domain.TicketStatusOpen, first.Status)
		assert.Equal(t, "GRV-000001", first.Number)
		assert.Equal(t, "GRV-000002", second.Number)
		assert.Equal(t, f.clock.Now(), first.CreatedAt)
		assert.Nil(t, first.EscalatedAt)
		assert.Nil(t, first.Feedback)
	})

	t.Run("defaults priority to medium", func(t *testing.T) {
		f := newEngineFixture(t)

		ticket := f.createTicket(t, "")
		assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	})

	t.Run("rejects missing fields with per-field details", func(t *testing.T) {
		f := newEngineFixture(t)

		_, err := f.engine.CreateTicket(context.Background(), TicketCreateInput{
			CustomerName: "Asha Patel",
			Category:     domain.TicketCategoryComplaint,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Contains(t, domainErr.Details, "consumer_number")
		assert.Contains(t, domainErr.Details, "title")
		assert.Contains(t, domainErr.Details, "description")
	})

	t.Run("rejects unknown category and priority", func(t *testing.T) {
		f := newEngineFixture(t)

		_, err := f.engine.CreateTicket(context.Background(), TicketCreateInput{
			CustomerName:   "Asha Patel",
			ConsumerNumber: "CN-1001",
			Title:          "t",
			Description:    "d",
			Category:       domain.TicketCategory("SOMETHING_ELSE"),
		})
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

		_, err = f.engine.CreateTicket(context.Background(), TicketCreateInput{
			CustomerName:   "Asha Patel",
			ConsumerNumber: "CN-1001",
			Title:          "t",
			Description:    "d",
			Category:       domain.TicketCategoryComplaint,
			Priority:       domain.TicketPriority("CRITICAL"),
		})
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("notifies staff roles on creation", func(t *testing.T) {
		f := newEngineFixture(t)
		f.createTicket(t, domain.TicketPriorityHigh)

		assert.Len(t, f.notificationsFor(t, domain.RoleSiteEngineer), 1)
		assert.Len(t, f.notificationsFor(t, domain.RoleDepartmentHead), 1)
		assert.Empty(t, f.notificationsFor(t, domain.RoleConsumer))
	})
}

func TestUpdateStatusTransitions(t *testing.T) {
	valid := []struct {
		from domain.TicketStatus
		to   domain.TicketStatus
	}{
		{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		{domain.TicketStatusOpen, domain.TicketStatusEscalated},
		{domain.TicketStatusInProgress, domain.TicketStatusEscalated},
		{domain.TicketStatusInProgress, domain.TicketStatusResolved},
		{domain.TicketStatusInProgress, domain.TicketStatusClosed},
		{domain.TicketStatusEscalated, domain.TicketStatusResolved},
		{domain.TicketStatusEscalated, domain.TicketStatusOpen},
		{domain.TicketStatusResolved, domain.TicketStatusClosed},
	}
	for _, tc := range valid {
		t.Run(string(tc.from)+" to "+string(tc.to), func(t *testing.T) {
			f := newEngineFixture(t)
			ticket := f.createTicket(t, domain.TicketPriorityMedium)
			forceStatus(t, f.store, ticket.ID, tc.from)

			updated, err := f.engine.UpdateStatus(context.Background(), headActor, ticket.ID, tc.to, "")
			require.NoError(t, err)
			assert.Equal(t, tc.to, updated.Status)
			// Priority never changes after creation.
			assert.Equal(t, domain.TicketPriorityMedium, updated.Priority)
		})
	}

	invalid := []struct {
		from domain.TicketStatus
		to   domain.TicketStatus
	}{
		{domain.TicketStatusOpen, domain.TicketStatusResolved},
		{domain.TicketStatusOpen, domain.TicketStatusClosed},
		{domain.TicketStatusResolved, domain.TicketStatusOpen},
		{domain.TicketStatusResolved, domain.TicketStatusInProgress},
		{domain.TicketStatusClosed, domain.TicketStatusOpen},
		{domain.TicketStatusClosed, domain.TicketStatusResolved},
		{domain.TicketStatusEscalated, domain.TicketStatusInProgress},
		{domain.TicketStatusEscalated, domain.TicketStatusClosed},
	}
	for _, tc := range invalid {
		t.Run(string(tc.from)+" to "+string(tc.to)+" rejected", func(t *testing.T) {
			f := newEngineFixture(t)
			ticket := f.createTicket(t, domain.TicketPriorityMedium)
			forceStatus(t, f.store, ticket.ID, tc.from)

			_, err := f.engine.UpdateStatus(context.Background(), headActor, ticket.ID, tc.to, "")
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))

			// A rejected transition leaves the ticket untouched.
			current, getErr := f.engine.GetTicket(context.Background(), headActor, ticket.ID)
			require.NoError(t, getErr)
			assert.Equal(t, tc.from, current.Status)
		})
	}

	t.Run("unknown ticket", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.engine.UpdateStatus(context.Background(), headActor, "missing-id", domain.TicketStatusInProgress, "")
		assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	})

	t.Run("stamps lifecycle timestamps", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)

		f.clock.Advance(time.Hour)
		_, err := f.engine.UpdateStatus(context.Background(), engineerActor, ticket.ID, domain.TicketStatusInProgress, "")
		require.NoError(t, err)

		f.clock.Advance(time.Hour)
		resolved, err := f.engine.UpdateStatus(context.Background(), engineerActor, ticket.ID, domain.TicketStatusResolved, "fixed fuse")
		require.NoError(t, err)
		require.NotNil(t, resolved.ResolvedAt)
		assert.Equal(t, f.clock.Now(), *resolved.ResolvedAt)

		f.clock.Advance(time.Hour)
		closed, err := f.engine.UpdateStatus(context.Background(), engineerActor, ticket.ID, domain.TicketStatusClosed, "")
		require.NoError(t, err)
		require.NotNil(t, closed.ClosedAt)
		assert.Equal(t, f.clock.Now(), *closed.ClosedAt)
	})

	t.Run("assigns the first engineer to touch the ticket", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)

		updated, err := f.engine.UpdateStatus(context.Background(), engineerActor, ticket.ID, domain.TicketStatusInProgress, "")
		require.NoError(t, err)
		require.NotNil(t, updated.AssignedTo)
		assert.Equal(t, engineerActor.Name, *updated.AssignedTo)
	})

	t.Run("escalated tickets are locked to department head", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)
		forceStatus(t, f.store, ticket.ID, domain.TicketStatusEscalated)

		_, err := f.engine.UpdateStatus(context.Background(), engineerActor, ticket.ID, domain.TicketStatusResolved, "")
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

		_, err = f.engine.UpdateStatus(context.Background(), headActor, ticket.ID, domain.TicketStatusResolved, "")
		assert.NoError(t, err)
	})
}

func TestEscalatedReview(t *testing.T) {
	t.Run("approve resolves the ticket", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)
		forceStatus(t, f.store, ticket.ID, domain.TicketStatusEscalated)

		resolved, err := f.engine.ApproveEscalated(context.Background(), headActor, ticket.ID, "verified on site")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
		assert.NotNil(t, resolved.ResolvedAt)
	})

	t.Run("reject reopens the ticket", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)

		_, err := f.engine.UpdateStatus(context.Background(), headActor, ticket.ID, domain.TicketStatusEscalated, "")
		require.NoError(t, err)

		reopened, err := f.engine.RejectEscalated(context.Background(), headActor, ticket.ID, "needs rework")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
		// The escalation remains on record after a reject.
		assert.NotNil(t, reopened.EscalatedAt)
	})

	t.Run("only the department head may review", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)
		forceStatus(t, f.store, ticket.ID, domain.TicketStatusEscalated)

		_, err := f.engine.ApproveEscalated(context.Background(), engineerActor, ticket.ID, "")
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

		_, err = f.engine.RejectEscalated(context.Background(), consumerActor, ticket.ID, "")
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})
}

func TestEscalateBreached(t *testing.T) {
	t.Run("escalates only tickets past their window", func(t *testing.T) {
		f := newEngineFixture(t)
		high := f.createTicket(t, domain.TicketPriorityHigh)
		medium := f.createTicket(t, domain.TicketPriorityMedium)
		low := f.createTicket(t, domain.TicketPriorityLow)

		// 30h in: only the 24h high-priority window is exhausted.
		f.clock.Advance(30 * time.Hour)
		sweepAt := f.clock.Now()

		escalated, err := f.engine.EscalateBreached(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, escalated)

		got, err := f.engine.GetTicket(context.Background(), headActor, high.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusEscalated, got.Status)
		require.NotNil(t, got.EscalatedAt)
		assert.Equal(t, sweepAt, *got.EscalatedAt)

		for _, id := range []string{medium.ID, low.ID} {
			unaffected, err := f.engine.GetTicket(context.Background(), headActor, id)
			require.NoError(t, err)
			assert.Equal(t, domain.TicketStatusOpen, unaffected.Status)
			assert.Nil(t, unaffected.EscalatedAt)
		}
	})

	t.Run("sweep is idempotent", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityHigh)

		f.clock.Advance(25 * time.Hour)
		first, err := f.engine.EscalateBreached(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, first)

		firstEscalatedAt := mustGet(t, f, ticket.ID).EscalatedAt

		f.clock.Advance(time.Hour)
		second, err := f.engine.EscalateBreached(context.Background())
		require.NoError(t, err)
		assert.Zero(t, second)

		// EscalatedAt keeps the original sweep instant.
		assert.Equal(t, firstEscalatedAt, mustGet(t, f, ticket.ID).EscalatedAt)

		escalationAlerts := 0
		for _, n := range f.notificationsFor(t, domain.RoleDepartmentHead) {
			if n.Type == domain.NotificationTicketEscalated {
				escalationAlerts++
			}
		}
		assert.Equal(t, 1, escalationAlerts)

		runs, total := f.metrics.SweepStats()
		assert.Equal(t, int64(2), runs)
		assert.Equal(t, int64(1), total)
	})

	t.Run("in-progress tickets are swept too", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityHigh)

		_, err := f.engine.UpdateStatus(context.Background(), engineerActor, ticket.ID, domain.TicketStatusInProgress, "")
		require.NoError(t, err)

		f.clock.Advance(25 * time.Hour)
		escalated, err := f.engine.EscalateBreached(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, escalated)
	})

	t.Run("resolved tickets never escalate", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityHigh)
		forceStatus(t, f.store, ticket.ID, domain.TicketStatusResolved)

		f.clock.Advance(48 * time.Hour)
		escalated, err := f.engine.EscalateBreached(context.Background())
		require.NoError(t, err)
		assert.Zero(t, escalated)
	})
}

func TestAttachFeedback(t *testing.T) {
	resolve := func(t *testing.T, f *engineFixture, id string) {
		t.Helper()
		_, err := f.engine.UpdateStatus(context.Background(), engineerActor, id, domain.TicketStatusInProgress, "")
		require.NoError(t, err)
		_, err = f.engine.UpdateStatus(context.Background(), engineerActor, id, domain.TicketStatusResolved, "")
		require.NoError(t, err)
	}

	t.Run("records feedback on a resolved ticket", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)
		resolve(t, f, ticket.ID)

		f.clock.Advance(time.Hour)
		updated, err := f.engine.AttachFeedback(context.Background(), consumerActor, ticket.ID, 4, "quick fix")
		require.NoError(t, err)
		require.NotNil(t, updated.Feedback)
		assert.Equal(t, 4, updated.Feedback.Rating)
		assert.Equal(t, "quick fix", updated.Feedback.Comment)
		assert.Equal(t, f.clock.Now(), updated.Feedback.SubmittedAt)
	})

	t.Run("rejects out-of-range ratings", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)
		resolve(t, f, ticket.ID)

		for _, rating := range []int{0, -1, 6} {
			_, err := f.engine.AttachFeedback(context.Background(), consumerActor, ticket.ID, rating, "")
			assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
		}
	})

	t.Run("requires a resolved ticket", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)

		_, err := f.engine.AttachFeedback(context.Background(), consumerActor, ticket.ID, 5, "")
		assert.True(t, apperrors.IsCode(err, "CONFLICT"))

		// The failed call records neither feedback nor an alert.
		assert.Nil(t, mustGet(t, f, ticket.ID).Feedback)
		for _, n := range f.notificationsFor(t, domain.RoleDepartmentHead) {
			assert.NotEqual(t, domain.NotificationLowRating, n.Type)
		}
	})

	t.Run("feedback is single-shot", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)
		resolve(t, f, ticket.ID)

		_, err := f.engine.AttachFeedback(context.Background(), consumerActor, ticket.ID, 5, "")
		require.NoError(t, err)

		_, err = f.engine.AttachFeedback(context.Background(), consumerActor, ticket.ID, 1, "changed my mind")
		assert.True(t, apperrors.IsCode(err, "CONFLICT"))
	})

	t.Run("rejects feedback from another consumer", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)
		resolve(t, f, ticket.ID)

		other := Actor{Role: domain.RoleConsumer, Name: "Someone Else", ConsumerNumber: "CN-9999"}
		_, err := f.engine.AttachFeedback(context.Background(), other, ticket.ID, 5, "")
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("low rating alerts the department head", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)
		resolve(t, f, ticket.ID)

		_, err := f.engine.AttachFeedback(context.Background(), consumerActor, ticket.ID, 2, "still flickering")
		require.NoError(t, err)

		alerts := 0
		for _, n := range f.notificationsFor(t, domain.RoleDepartmentHead) {
			if n.Type == domain.NotificationLowRating {
				alerts++
			}
		}
		assert.Equal(t, 1, alerts)
	})

	t.Run("mid or high rating raises no alert", func(t *testing.T) {
		f := newEngineFixture(t)
		ticket := f.createTicket(t, domain.TicketPriorityMedium)
		resolve(t, f, ticket.ID)

		_, err := f.engine.AttachFeedback(context.Background(), consumerActor, ticket.ID, 3, "")
		require.NoError(t, err)

		for _, n := range f.notificationsFor(t, domain.RoleDepartmentHead) {
			assert.NotEqual(t, domain.NotificationLowRating, n.Type)
		}
	})
}

func TestVisibilityScoping(t *testing.T) {
	seed := func(t *testing.T, f *engineFixture) (mine, northern, southern *domain.Ticket) {
		t.Helper()

		mine = f.createTicket(t, domain.TicketPriorityMedium)

		var err error
		northern, err = f.engine.CreateTicket(context.Background(), TicketCreateInput{
			CustomerName:   "North Resident",
			ConsumerNumber: "CN-2002",
			Title:          "Streetlight out",
			Description:    "Pole 14 dark",
			Category:       domain.TicketCategoryMaintenance,
			Zone:           "north",
		})
		require.NoError(t, err)

		southern, err = f.engine.CreateTicket(context.Background(), TicketCreateInput{
			CustomerName:   "South Resident",
			ConsumerNumber: "CN-3003",
			Title:          "Meter tampering",
			Description:    "Seal broken",
			Category:       domain.TicketCategoryEnergyTheft,
			Zone:           "south",
		})
		require.NoError(t, err)
		return mine, northern, southern
	}

	t.Run("consumers see only their own tickets", func(t *testing.T) {
		f := newEngineFixture(t)
		mine, _, southern := seed(t, f)

		list, err := f.engine.ListTickets(context.Background(), consumerActor)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, mine.ID, list[0].ID)

		_, err = f.engine.GetTicket(context.Background(), consumerActor, southern.ID)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("site engineers see their zone", func(t *testing.T) {
		f := newEngineFixture(t)
		_, _, southern := seed(t, f)

		list, err := f.engine.ListTickets(context.Background(), engineerActor)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		_, err = f.engine.GetTicket(context.Background(), engineerActor, southern.ID)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("department heads see everything", func(t *testing.T) {
		f := newEngineFixture(t)
		_, _, southern := seed(t, f)

		list, err := f.engine.ListTickets(context.Background(), headActor)
		require.NoError(t, err)
		assert.Len(t, list, 3)

		_, err = f.engine.GetTicket(context.Background(), headActor, southern.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.engine.ListTickets(context.Background(), Actor{Role: domain.Role("AUDITOR")})
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})
}

func TestSLAStatus(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.createTicket(t, domain.TicketPriorityHigh)

	assert.Equal(t, sla.StatusOnTime, f.engine.SLAStatus(ticket).Status)

	f.clock.Advance(20 * time.Hour)
	refreshed := mustGet(t, f, ticket.ID)
	assert.Equal(t, sla.StatusAtRisk, f.engine.SLAStatus(refreshed).Status)

	f.clock.Advance(5 * time.Hour)
	refreshed = mustGet(t, f, ticket.ID)
	report := f.engine.SLAStatus(refreshed)
	assert.Equal(t, sla.StatusBreached, report.Status)
	assert.Equal(t, float64(100), report.Percentage)
}

// forceStatus drops a ticket into an arbitrary lifecycle state through the
// repository, bypassing the transition table for test setup.
func forceStatus(t *testing.T, store *repository.MemoryStore, id string, status domain.TicketStatus) {
	t.Helper()

	repo := store.Tickets()
	ticket, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	ticket.Status = status
	if status == domain.TicketStatusEscalated && ticket.EscalatedAt == nil {
		escalatedAt := ticket.UpdatedAt
		ticket.EscalatedAt = &escalatedAt
	}
	require.NoError(t, repo.Update(context.Background(), ticket))
}

func mustGet(t *testing.T, f *engineFixture, id string) *domain.Ticket {
	t.Helper()

	ticket, err := f.engine.GetTicket(context.Background(), headActor, id)
	require.NoError(t, err)
	return ticket
}

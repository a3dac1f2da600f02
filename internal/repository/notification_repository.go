package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// NotificationRepository stores append-only notification records. The only
// permitted mutation is clearing the unread flag.
type NotificationRepository interface {
	Append(ctx context.Context, notification *domain.Notification) error
	ListByRole(ctx context.Context, role domain.Role) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a Postgres-backed implementation.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Append(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (id, type, title, message, ticket_id, ticket_number,
            target_roles, unread, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	roles := make([]string, 0, len(notification.TargetRoles))
	for _, role := range notification.TargetRoles {
		roles = append(roles, string(role))
	}
	_, err := r.pool.Exec(ctx, query,
		notification.ID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.TicketID,
		notification.TicketNumber,
		roles,
		notification.Unread,
		notification.CreatedAt,
	)
	return err
}

func (r *notificationRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.Notification, error) {
	const query = `
        SELECT id, type, title, message, ticket_id, ticket_number, target_roles, unread, created_at
        FROM notifications
        WHERE $1 = ANY(target_roles)
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var roles []string
		if err := rows.Scan(
			&n.ID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.TicketID,
			&n.TicketNumber,
			&roles,
			&n.Unread,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		for _, r := range roles {
			n.TargetRoles = append(n.TargetRoles, domain.Role(r))
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	const query = `UPDATE notifications SET unread=FALSE WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// TicketFilter captures listing parameters. Role scoping is expressed by
// the engine as a predicate filter over these fields.
type TicketFilter struct {
	ConsumerNumber *string
	Zone           *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
}

// TicketRepository encapsulates ticket persistence. Create assigns the
// sequential ticket number; identity and timestamps are supplied by the
// engine.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository returns a Postgres-backed implementation.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, description, category, priority, status,
            customer_name, consumer_number, zone, assigned_to, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING seq`
	if err := r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.CustomerName,
		ticket.ConsumerNumber,
		ticket.Zone,
		ticket.AssignedTo,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.Seq); err != nil {
		return err
	}
	ticket.Number = domain.FormatTicketNumber(ticket.Seq)
	const numQuery = `UPDATE tickets SET number=$1 WHERE id=$2`
	_, err := r.pool.Exec(ctx, numQuery, ticket.Number, ticket.ID)
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, assigned_to=$2, updated_at=$3,
            escalated_at=$4, resolved_at=$5, closed_at=$6,
            feedback_rating=$7, feedback_comment=$8, feedback_at=$9
        WHERE id=$10`
	var rating *int
	var comment *string
	var submittedAt any
	if ticket.Feedback != nil {
		rating = &ticket.Feedback.Rating
		comment = &ticket.Feedback.Comment
		submittedAt = ticket.Feedback.SubmittedAt
	}
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.AssignedTo,
		ticket.UpdatedAt,
		ticket.EscalatedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		rating,
		comment,
		submittedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const ticketColumns = `id, seq, number, title, description, category, priority, status,
       customer_name, consumer_number, zone, assigned_to, created_at, updated_at,
       escalated_at, resolved_at, closed_at, feedback_rating, feedback_comment, feedback_at`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	row := r.pool.QueryRow(ctx, query, id)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ConsumerNumber != nil {
		args = append(args, *filter.ConsumerNumber)
		clauses = append(clauses, fmt.Sprintf("consumer_number=$%d", len(args)))
	}
	if filter.Zone != nil {
		args = append(args, *filter.Zone)
		clauses = append(clauses, fmt.Sprintf("zone=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY seq ASC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var rating *int
	var comment *string
	var submittedAt *time.Time
	if err := row.Scan(
		&ticket.ID,
		&ticket.Seq,
		&ticket.Number,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CustomerName,
		&ticket.ConsumerNumber,
		&ticket.Zone,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.EscalatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&rating,
		&comment,
		&submittedAt,
	); err != nil {
		return nil, err
	}
	if rating != nil {
		ticket.Feedback = &domain.Feedback{Rating: *rating}
		if comment != nil {
			ticket.Feedback.Comment = *comment
		}
		if submittedAt != nil {
			ticket.Feedback.SubmittedAt = *submittedAt
		}
	}
	return &ticket, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/registration-service/internal/domain"
)

// EventRepository encapsulates event persistence. Reads compute
// AvailableTickets from the live non-cancelled ticket count.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	Update(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	ListActive(ctx context.Context, limit, offset int) ([]domain.Event, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository instantiates repository.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

const eventSelect = `
        SELECT e.id, e.title, e.description, e.venue, e.starts_at, e.price, e.capacity,
               e.capacity - (SELECT COUNT(*) FROM tickets t WHERE t.event_id = e.id AND t.status <> 'CANCELLED'),
               e.is_active, e.created_at, e.updated_at
        FROM events e`

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	const query = `
        INSERT INTO events (title, description, venue, starts_at, price, capacity, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		event.Title,
		event.Description,
		event.Venue,
		event.StartsAt,
		event.Price,
		event.Capacity,
		event.IsActive,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
}

func (r *eventRepository) Update(ctx context.Context, event *domain.Event) error {
	const query = `
        UPDATE events SET title=$1, description=$2, venue=$3, starts_at=$4, price=$5,
            capacity=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		event.Title,
		event.Description,
		event.Venue,
		event.StartsAt,
		event.Price,
		event.Capacity,
		event.IsActive,
		event.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var event domain.Event
	if err := r.pool.QueryRow(ctx, eventSelect+` WHERE e.id=$1`, id).Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Venue,
		&event.StartsAt,
		&event.Price,
		&event.Capacity,
		&event.AvailableTickets,
		&event.IsActive,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) ListActive(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, eventSelect+` WHERE e.is_active ORDER BY e.starts_at ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Event
	for rows.Next() {
		var event domain.Event
		if err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.Venue,
			&event.StartsAt,
			&event.Price,
			&event.Capacity,
			&event.AvailableTickets,
			&event.IsActive,
			&event.CreatedAt,
			&event.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/registration-service/internal/domain"
)

// ReviewHistoryRepository persists the review audit trail.
type ReviewHistoryRepository interface {
	Create(ctx context.Context, entry *domain.ReviewHistory) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.ReviewHistory, error)
}

type reviewHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewReviewHistoryRepository constructs repository.
func NewReviewHistoryRepository(pool *pgxpool.Pool) ReviewHistoryRepository {
	return &reviewHistoryRepository{pool: pool}
}

func (r *reviewHistoryRepository) Create(ctx context.Context, entry *domain.ReviewHistory) error {
	oldVal, err := json.Marshal(entry.OldValue)
	if err != nil {
		return err
	}
	newVal, err := json.Marshal(entry.NewValue)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO review_history (ticket_id, changed_by_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ChangedByID,
		entry.ChangeType,
		oldVal,
		newVal,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *reviewHistoryRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.ReviewHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
        SELECT id, ticket_id, changed_by_id, change_type, old_value, new_value, created_at
        FROM review_history
        WHERE ticket_id=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ReviewHistory
	for rows.Next() {
		var entry domain.ReviewHistory
		var oldVal, newVal []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ChangedByID,
			&entry.ChangeType,
			&oldVal,
			&newVal,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(oldVal, &entry.OldValue); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(newVal, &entry.NewValue); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

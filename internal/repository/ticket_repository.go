package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/registration-service/internal/domain"
)

// Booking sentinel errors. Services map these onto the public error
// taxonomy; the repository only reports which invariant tripped.
var (
	ErrEventInactive    = errors.New("event inactive")
	ErrCapacityExceeded = errors.New("event capacity exceeded")
	ErrDuplicateBooking = errors.New("active ticket already exists for user and event")
	ErrMembershipExists = errors.New("membership ticket already exists for user")
)

const uniqueViolation = "23505"

// TicketFilter captures admin search parameters.
type TicketFilter struct {
	UserID              *string
	EventID             *string
	Statuses            []domain.TicketStatus
	ApplicationStatuses []domain.ApplicationStatus
	SearchTerm          *string
	CreatedFrom         *time.Time
	CreatedTo           *time.Time
	SortBy              string
	SortAsc             bool
	Limit               int
	Offset              int
}

// StatusCounts buckets tickets for the admin dashboard.
type StatusCounts struct {
	Pending     int64
	Shortlisted int64
	Rejected    int64
	Completed   int64
	Cancelled   int64
	Total       int64
}

// TicketRepository encapsulates ticket persistence.
//
// Book is the availability guard's write path: the capacity check and the
// insert happen inside one transaction with the event row locked, so two
// concurrent bookings at capacity-1 cannot both pass the check. The
// partial unique index on (user_id, event_id) backstops duplicates.
type TicketRepository interface {
	Book(ctx context.Context, ticket *domain.Ticket) error
	CreateMembership(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context, filter TicketFilter) (StatusCounts, error)
	ListCompleted(ctx context.Context) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.ticket_number, t.user_id, t.event_id, t.price, t.qr_code,
               t.status, t.application_status, t.admin_feedback, t.registration_data,
               t.created_at, t.updated_at`

func (r *ticketRepository) Book(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.EventID == nil {
		return errors.New("booking requires an event id")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// FOR UPDATE serializes bookings per event; the count below is
	// re-validated under the lock.
	var capacity int
	var isActive bool
	if err := tx.QueryRow(ctx,
		`SELECT capacity, is_active FROM events WHERE id=$1 FOR UPDATE`,
		*ticket.EventID,
	).Scan(&capacity, &isActive); err != nil {
		return err
	}
	if !isActive {
		return ErrEventInactive
	}

	// duplicate check precedes the capacity check: a retry by a user who
	// already holds a ticket on a full event is a duplicate, not a
	// sold-out condition
	var duplicate bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tickets WHERE user_id=$1 AND event_id=$2 AND status <> 'CANCELLED')`,
		ticket.UserID, *ticket.EventID,
	).Scan(&duplicate); err != nil {
		return err
	}
	if duplicate {
		return ErrDuplicateBooking
	}

	var booked int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id=$1 AND status <> 'CANCELLED'`,
		*ticket.EventID,
	).Scan(&booked); err != nil {
		return err
	}
	if booked >= capacity {
		return ErrCapacityExceeded
	}

	regData, err := json.Marshal(ticket.RegistrationData)
	if err != nil {
		return err
	}

	const insert = `
        INSERT INTO tickets (ticket_number, user_id, event_id, price, qr_code, status, application_status, registration_data)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insert,
		ticket.TicketNumber,
		ticket.UserID,
		ticket.EventID,
		ticket.Price,
		ticket.QRCode,
		ticket.Status,
		ticket.ApplicationStatus,
		regData,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		if isUniqueViolationOn(err, "tickets_user_event_active_key") {
			return ErrDuplicateBooking
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) CreateMembership(ctx context.Context, ticket *domain.Ticket) error {
	regData, err := json.Marshal(ticket.RegistrationData)
	if err != nil {
		return err
	}

	const insert = `
        INSERT INTO tickets (ticket_number, user_id, event_id, price, qr_code, status, application_status, registration_data)
        VALUES ($1,$2,NULL,0,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	if err := r.pool.QueryRow(ctx, insert,
		ticket.TicketNumber,
		ticket.UserID,
		ticket.QRCode,
		ticket.Status,
		ticket.ApplicationStatus,
		regData,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		if isUniqueViolationOn(err, "tickets_membership_key") {
			return ErrMembershipExists
		}
		return err
	}
	return nil
}

// Update persists all mutable ticket fields in a single statement.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	regData, err := json.Marshal(ticket.RegistrationData)
	if err != nil {
		return err
	}

	const query = `
        UPDATE tickets SET status=$1, application_status=$2, admin_feedback=$3,
            registration_data=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	if err := r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.ApplicationStatus,
		ticket.AdminFeedback,
		regData,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTicket(row)
}

// ListByUser returns the caller's tickets with event details populated.
func (r *ticketRepository) ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	query := `
        SELECT ` + ticketColumns + `,
               e.id, e.title, e.venue, e.starts_at, e.price, e.capacity, e.is_active
        FROM tickets t
        LEFT JOIN events e ON e.id = t.event_id
        WHERE t.user_id=$1
        ORDER BY t.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		var regData []byte
		var evID, evTitle, evVenue *string
		var evStartsAt *time.Time
		var evPrice *int64
		var evCapacity *int
		var evActive *bool
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.UserID,
			&ticket.EventID,
			&ticket.Price,
			&ticket.QRCode,
			&ticket.Status,
			&ticket.ApplicationStatus,
			&ticket.AdminFeedback,
			&regData,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&evID, &evTitle, &evVenue, &evStartsAt, &evPrice, &evCapacity, &evActive,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(regData, &ticket.RegistrationData); err != nil {
			return nil, err
		}
		if evID != nil {
			ticket.Event = &domain.Event{
				ID:       *evID,
				Title:    *evTitle,
				Venue:    *evVenue,
				StartsAt: *evStartsAt,
				Price:    *evPrice,
				Capacity: *evCapacity,
				IsActive: *evActive,
			}
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets t LEFT JOIN users u ON u.id = t.user_id`
	clauses, args := buildTicketClauses(filter)

	order := "t.created_at"
	if filter.SortBy == "updated_at" {
		order = "t.updated_at"
	}
	direction := "DESC"
	if filter.SortAsc {
		direction = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), order, direction, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByStatus(ctx context.Context, filter TicketFilter) (StatusCounts, error) {
	base := `
        SELECT
            COUNT(*) FILTER (WHERE t.application_status='PENDING' AND t.status <> 'CANCELLED'),
            COUNT(*) FILTER (WHERE t.application_status='SHORTLISTED' AND t.status <> 'CANCELLED'),
            COUNT(*) FILTER (WHERE t.application_status='REJECTED' AND t.status <> 'CANCELLED'),
            COUNT(*) FILTER (WHERE t.application_status='COMPLETED' AND t.status <> 'CANCELLED'),
            COUNT(*) FILTER (WHERE t.status='CANCELLED'),
            COUNT(*)
        FROM tickets t LEFT JOIN users u ON u.id = t.user_id`
	clauses, args := buildTicketClauses(filter)

	var counts StatusCounts
	query := base + ` WHERE ` + strings.Join(clauses, " AND ")
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&counts.Pending,
		&counts.Shortlisted,
		&counts.Rejected,
		&counts.Completed,
		&counts.Cancelled,
		&counts.Total,
	); err != nil {
		return StatusCounts{}, err
	}
	return counts, nil
}

func (r *ticketRepository) ListCompleted(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets t
        WHERE t.application_status='COMPLETED' AND t.status <> 'CANCELLED'
        ORDER BY t.created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func buildTicketClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("t.user_id=$%d", len(args)))
	}
	if filter.EventID != nil {
		args = append(args, *filter.EventID)
		clauses = append(clauses, fmt.Sprintf("t.event_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.ApplicationStatuses) > 0 {
		placeholders := make([]string, len(filter.ApplicationStatuses))
		for i, status := range filter.ApplicationStatuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.application_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(t.ticket_number) LIKE %s OR LOWER(u.name) LIKE %s OR LOWER(u.email) LIKE %s OR LOWER(t.registration_data->>'phone') LIKE %s)",
			placeholder, placeholder, placeholder, placeholder))
	}
	return clauses, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var regData []byte
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.UserID,
		&ticket.EventID,
		&ticket.Price,
		&ticket.QRCode,
		&ticket.Status,
		&ticket.ApplicationStatus,
		&ticket.AdminFeedback,
		&regData,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(regData, &ticket.RegistrationData); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
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

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// isUniqueViolationOn reports whether err is a unique violation raised by
// the named constraint. The tickets table carries several unique indexes,
// so a bare 23505 is not enough to tell a duplicate booking from a
// ticket-number collision.
func isUniqueViolationOn(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

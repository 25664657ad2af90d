package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/registration-service/internal/domain"
)

func TestBuildTicketClauses(t *testing.T) {
	t.Run("empty filter matches everything", func(t *testing.T) {
		clauses, args := buildTicketClauses(TicketFilter{})
		assert.Equal(t, []string{"1=1"}, clauses)
		assert.Empty(t, args)
	})

	t.Run("placeholders are numbered in arg order", func(t *testing.T) {
		userID := "user-1"
		from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		clauses, args := buildTicketClauses(TicketFilter{
			UserID:              &userID,
			ApplicationStatuses: []domain.ApplicationStatus{domain.ApplicationStatusPending, domain.ApplicationStatusShortlisted},
			CreatedFrom:         &from,
		})

		require.Len(t, args, 4)
		assert.Equal(t, "user-1", args[0])
		assert.Contains(t, clauses, "t.user_id=$1")
		assert.Contains(t, clauses, "t.application_status IN ($2,$3)")
		assert.Contains(t, clauses, "t.created_at >= $4")
	})

	t.Run("search binds one lowercase pattern across columns", func(t *testing.T) {
		search := "  Jane  "
		clauses, args := buildTicketClauses(TicketFilter{SearchTerm: &search})

		require.Len(t, args, 1)
		assert.Equal(t, "%jane%", args[0])
		require.Len(t, clauses, 2)
		assert.Contains(t, clauses[1], "LOWER(t.ticket_number) LIKE $1")
		assert.Contains(t, clauses[1], "LOWER(u.email) LIKE $1")
		assert.Contains(t, clauses[1], "t.registration_data->>'phone'")
	})

	t.Run("blank search is ignored", func(t *testing.T) {
		search := "   "
		clauses, args := buildTicketClauses(TicketFilter{SearchTerm: &search})
		assert.Equal(t, []string{"1=1"}, clauses)
		assert.Empty(t, args)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain error")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsUniqueViolationOn(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "tickets_user_event_active_key"}
	assert.True(t, isUniqueViolationOn(dup, "tickets_user_event_active_key"))
	assert.False(t, isUniqueViolationOn(dup, "tickets_membership_key"))

	// a ticket-number collision is the same SQLSTATE on a different
	// constraint and must not read as a duplicate booking
	numberClash := &pgconn.PgError{Code: "23505", ConstraintName: "tickets_ticket_number_key"}
	assert.False(t, isUniqueViolationOn(numberClash, "tickets_user_event_active_key"))

	assert.False(t, isUniqueViolationOn(errors.New("plain error"), "tickets_user_event_active_key"))
}

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/events"
	"github.com/spec-kit/registration-service/internal/observability"
	apperrors "github.com/spec-kit/registration-service/pkg/util"
)

func newBookingService(fx *fixture) *BookingService {
	return NewBookingService(BookingDependencies{
		TicketRepo: &fakeTicketRepo{fx: fx},
		EventRepo:  &fakeEventRepo{fx: fx},
		Dispatcher: &recordingDispatcher{fx: fx},
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
	})
}

func validPhase1() domain.RegistrationData {
	return domain.RegistrationData{
		Name:  "Jane Doe",
		Email: "jane@example.com",
		Phone: "+2511234567",
	}
}

func TestBookEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending confirmed ticket", func(t *testing.T) {
		fx := newFixture()
		user := fx.addUser(&domain.User{Name: "Jane", Email: "jane@example.com"})
		event := fx.addEvent(&domain.Event{Title: "Casting Night", Price: 5000, Capacity: 10, IsActive: true})
		svc := newBookingService(fx)

		ticket, err := svc.BookEvent(ctx, user.ID, event.ID, validPhase1())
		require.NoError(t, err)

		assert.Equal(t, domain.TicketStatusConfirmed, ticket.Status)
		assert.Equal(t, domain.ApplicationStatusPending, ticket.ApplicationStatus)
		assert.Equal(t, event.Price, ticket.Price)
		assert.True(t, strings.HasPrefix(ticket.TicketNumber, "EVT-"))
		assert.NotEmpty(t, ticket.QRCode)
		require.NotNil(t, ticket.EventID)
		assert.Equal(t, event.ID, *ticket.EventID)
		assert.Equal(t, []events.EventType{events.EventTicketBooked}, fx.publishedTypes())
	})

	t.Run("rejects bookings past capacity", func(t *testing.T) {
		fx := newFixture()
		event := fx.addEvent(&domain.Event{Title: "Small Venue", Capacity: 1, IsActive: true})
		svc := newBookingService(fx)

		first := fx.addUser(&domain.User{Email: "a@example.com"})
		_, err := svc.BookEvent(ctx, first.ID, event.ID, validPhase1())
		require.NoError(t, err)

		second := fx.addUser(&domain.User{Email: "b@example.com"})
		_, err = svc.BookEvent(ctx, second.ID, event.ID, validPhase1())
		requireDomainCode(t, err, "CAPACITY_EXCEEDED")
	})

	t.Run("rejects a second active booking for the same event", func(t *testing.T) {
		fx := newFixture()
		user := fx.addUser(&domain.User{Email: "a@example.com"})
		event := fx.addEvent(&domain.Event{Title: "Runway", Capacity: 10, IsActive: true})
		svc := newBookingService(fx)

		_, err := svc.BookEvent(ctx, user.ID, event.ID, validPhase1())
		require.NoError(t, err)

		_, err = svc.BookEvent(ctx, user.ID, event.ID, validPhase1())
		requireDomainCode(t, err, "DUPLICATE_BOOKING")
	})

	t.Run("retry on a full event reports duplicate, not sold out", func(t *testing.T) {
		fx := newFixture()
		user := fx.addUser(&domain.User{Email: "a@example.com"})
		event := fx.addEvent(&domain.Event{Title: "Small Venue", Capacity: 1, IsActive: true})
		svc := newBookingService(fx)

		_, err := svc.BookEvent(ctx, user.ID, event.ID, validPhase1())
		require.NoError(t, err)

		// the event is now full, but the caller's own ticket is what
		// blocks the retry
		_, err = svc.BookEvent(ctx, user.ID, event.ID, validPhase1())
		requireDomainCode(t, err, "DUPLICATE_BOOKING")
	})

	t.Run("allows rebooking after cancellation", func(t *testing.T) {
		fx := newFixture()
		user := fx.addUser(&domain.User{Email: "a@example.com"})
		event := fx.addEvent(&domain.Event{Title: "Runway", Capacity: 1, IsActive: true})
		svc := newBookingService(fx)
		tickets := NewTicketService(TicketDependencies{
			TicketRepo:  &fakeTicketRepo{fx: fx},
			UserRepo:    &fakeUserRepo{fx: fx},
			HistoryRepo: &fakeHistoryRepo{fx: fx},
			Dispatcher:  &recordingDispatcher{fx: fx},
			Logger:      zap.NewNop(),
		})

		ticket, err := svc.BookEvent(ctx, user.ID, event.ID, validPhase1())
		require.NoError(t, err)
		_, err = tickets.CancelTicket(ctx, Actor{ID: user.ID, Role: domain.RoleUser}, ticket.ID)
		require.NoError(t, err)

		_, err = svc.BookEvent(ctx, user.ID, event.ID, validPhase1())
		require.NoError(t, err)
	})

	t.Run("unknown event", func(t *testing.T) {
		fx := newFixture()
		user := fx.addUser(&domain.User{Email: "a@example.com"})
		svc := newBookingService(fx)

		_, err := svc.BookEvent(ctx, user.ID, "missing", validPhase1())
		requireDomainCode(t, err, "NOT_FOUND")
	})

	t.Run("inactive event is invisible", func(t *testing.T) {
		fx := newFixture()
		user := fx.addUser(&domain.User{Email: "a@example.com"})
		event := fx.addEvent(&domain.Event{Title: "Archived", Capacity: 10, IsActive: false})
		svc := newBookingService(fx)

		_, err := svc.BookEvent(ctx, user.ID, event.ID, validPhase1())
		requireDomainCode(t, err, "NOT_FOUND")
	})

	t.Run("missing registration fields", func(t *testing.T) {
		fx := newFixture()
		user := fx.addUser(&domain.User{Email: "a@example.com"})
		event := fx.addEvent(&domain.Event{Title: "Runway", Capacity: 10, IsActive: true})
		svc := newBookingService(fx)

		_, err := svc.BookEvent(ctx, user.ID, event.ID, domain.RegistrationData{Name: "Jane"})
		requireDomainCode(t, err, "VALIDATION_FAILED")
	})
}

// Concurrent bookings against a nearly full event must never exceed
// capacity: exactly capacity callers win, the rest get the sold-out
// error.
func TestBookEvent_ConcurrentCapacity(t *testing.T) {
	const capacity = 5
	const callers = 20

	fx := newFixture()
	event := fx.addEvent(&domain.Event{Title: "Finale", Capacity: capacity, IsActive: true})
	svc := newBookingService(fx)

	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		user := fx.addUser(&domain.User{Email: fmt.Sprintf("user%d@example.com", i)})
		wg.Add(1)
		go func(idx int, userID string) {
			defer wg.Done()
			_, results[idx] = svc.BookEvent(context.Background(), userID, event.ID, validPhase1())
		}(i, user.ID)
	}
	wg.Wait()

	booked := 0
	for _, err := range results {
		if err == nil {
			booked++
		} else {
			requireDomainCode(t, err, "CAPACITY_EXCEEDED")
		}
	}
	assert.Equal(t, capacity, booked)
}

func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

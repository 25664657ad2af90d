package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/events"
	"github.com/spec-kit/registration-service/internal/repository"
)

// fixture is shared in-memory state backing the repository fakes. The
// ticket fake reproduces the store's booking semantics: capacity check
// and insert under one lock, duplicate and membership uniqueness
// enforced the way the partial indexes do.
type fixture struct {
	mu         sync.Mutex
	users      map[string]*domain.User
	eventsByID map[string]*domain.Event
	tickets    map[string]*domain.Ticket
	history    []*domain.ReviewHistory
	published  []events.Event
	seq        int64
	nextID     int
	failMirror bool
}

func newFixture() *fixture {
	return &fixture{
		users:      make(map[string]*domain.User),
		eventsByID: make(map[string]*domain.Event),
		tickets:    make(map[string]*domain.Ticket),
	}
}

func (fx *fixture) id(prefix string) string {
	fx.nextID++
	return fmt.Sprintf("%s-%d", prefix, fx.nextID)
}

func (fx *fixture) addUser(user *domain.User) *domain.User {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	if user.ID == "" {
		user.ID = fx.id("user")
	}
	fx.users[user.ID] = user
	return user
}

func (fx *fixture) addEvent(event *domain.Event) *domain.Event {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	if event.ID == "" {
		event.ID = fx.id("event")
	}
	fx.eventsByID[event.ID] = event
	return event
}

func (fx *fixture) addTicket(ticket *domain.Ticket) *domain.Ticket {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = fx.id("ticket")
	}
	fx.tickets[ticket.ID] = ticket
	return ticket
}

func (fx *fixture) ticketCopy(id string) *domain.Ticket {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	ticket, ok := fx.tickets[id]
	if !ok {
		return nil
	}
	copied := *ticket
	return &copied
}

type fakeUserRepo struct{ fx *fixture }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	for _, existing := range r.fx.users {
		if existing.Email == user.Email {
			return fmt.Errorf("duplicate email")
		}
	}
	user.ID = r.fx.id("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.fx.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	if _, ok := r.fx.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.fx.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	user, ok := r.fx.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	for _, user := range r.fx.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) SetApplicationStatus(_ context.Context, userID string, status domain.ApplicationStatus) error {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	if r.fx.failMirror {
		return fmt.Errorf("mirror write failed")
	}
	user, ok := r.fx.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.ApplicationStatus = status
	return nil
}

type fakeEventRepo struct{ fx *fixture }

func (r *fakeEventRepo) Create(_ context.Context, event *domain.Event) error {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	event.ID = r.fx.id("event")
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	r.fx.eventsByID[event.ID] = event
	return nil
}

func (r *fakeEventRepo) Update(_ context.Context, event *domain.Event) error {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	if _, ok := r.fx.eventsByID[event.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.fx.eventsByID[event.ID] = event
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	event, ok := r.fx.eventsByID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) ListActive(_ context.Context, _, _ int) ([]domain.Event, error) {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	var result []domain.Event
	for _, event := range r.fx.eventsByID {
		if event.IsActive {
			result = append(result, *event)
		}
	}
	return result, nil
}

type fakeTicketRepo struct{ fx *fixture }

func (r *fakeTicketRepo) Book(_ context.Context, ticket *domain.Ticket) error {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()

	event, ok := r.fx.eventsByID[*ticket.EventID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !event.IsActive {
		return repository.ErrEventInactive
	}

	// duplicate before capacity, mirroring the store's ordering
	for _, existing := range r.fx.tickets {
		if existing.EventID != nil && *existing.EventID == event.ID && existing.IsActive() && existing.UserID == ticket.UserID {
			return repository.ErrDuplicateBooking
		}
	}

	booked := 0
	for _, existing := range r.fx.tickets {
		if existing.EventID != nil && *existing.EventID == event.ID && existing.IsActive() {
			booked++
		}
	}
	if booked >= event.Capacity {
		return repository.ErrCapacityExceeded
	}

	ticket.ID = r.fx.id("ticket")
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.fx.tickets[ticket.ID] = ticket
	return nil
}

func (r *fakeTicketRepo) CreateMembership(_ context.Context, ticket *domain.Ticket) error {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	for _, existing := range r.fx.tickets {
		if existing.UserID == ticket.UserID && existing.EventID == nil {
			return repository.ErrMembershipExists
		}
	}
	ticket.ID = r.fx.id("ticket")
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.fx.tickets[ticket.ID] = ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	if _, ok := r.fx.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	r.fx.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket := r.fx.ticketCopy(id)
	if ticket == nil {
		return nil, pgx.ErrNoRows
	}
	return ticket, nil
}

func (r *fakeTicketRepo) ListByUser(_ context.Context, userID string) ([]domain.Ticket, error) {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.fx.tickets {
		if ticket.UserID == userID {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.fx.tickets {
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *fakeTicketRepo) CountByStatus(_ context.Context, _ repository.TicketFilter) (repository.StatusCounts, error) {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	var counts repository.StatusCounts
	for _, ticket := range r.fx.tickets {
		counts.Total++
		if ticket.Status == domain.TicketStatusCancelled {
			counts.Cancelled++
			continue
		}
		switch ticket.ApplicationStatus {
		case domain.ApplicationStatusPending:
			counts.Pending++
		case domain.ApplicationStatusShortlisted:
			counts.Shortlisted++
		case domain.ApplicationStatusRejected:
			counts.Rejected++
		case domain.ApplicationStatusCompleted:
			counts.Completed++
		}
	}
	return counts, nil
}

func (r *fakeTicketRepo) ListCompleted(_ context.Context) ([]domain.Ticket, error) {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.fx.tickets {
		if ticket.ApplicationStatus == domain.ApplicationStatusCompleted && ticket.IsActive() {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

type fakeHistoryRepo struct{ fx *fixture }

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.ReviewHistory) error {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	entry.ID = r.fx.id("history")
	entry.CreatedAt = time.Now()
	r.fx.history = append(r.fx.history, entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.ReviewHistory, error) {
	r.fx.mu.Lock()
	defer r.fx.mu.Unlock()
	var result []domain.ReviewHistory
	for _, entry := range r.fx.history {
		if entry.TicketID == ticketID {
			result = append(result, *entry)
		}
	}
	return result, nil
}

type fakeSequence struct{ fx *fixture }

func (s *fakeSequence) Next(_ context.Context, _ int) (int64, error) {
	s.fx.mu.Lock()
	defer s.fx.mu.Unlock()
	s.fx.seq++
	return s.fx.seq, nil
}

type recordingDispatcher struct{ fx *fixture }

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.fx.mu.Lock()
	defer d.fx.mu.Unlock()
	d.fx.published = append(d.fx.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(_ events.EventType, _ events.EventHandler) {}

func (fx *fixture) publishedTypes() []events.EventType {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	var types []events.EventType
	for _, event := range fx.published {
		types = append(types, event.Type)
	}
	return types
}

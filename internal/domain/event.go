package domain

import "time"

// Event is a capacity-bounded resource tickets are booked against.
// AvailableTickets is derived from capacity minus non-cancelled tickets
// and is never stored.
type Event struct {
	ID               string
	Title            string
	Description      string
	Venue            string
	StartsAt         time.Time
	Price            int64
	Capacity         int
	AvailableTickets int
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

package dto

import "time"

// CreateEventRequest payload.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartsAt    time.Time `json:"starts_at"`
	Price       int64     `json:"price"`
	Capacity    int       `json:"capacity"`
}

// UpdateEventRequest payload; nil fields are untouched.
type UpdateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Venue       *string    `json:"venue"`
	StartsAt    *time.Time `json:"starts_at"`
	Price       *int64     `json:"price"`
	Capacity    *int       `json:"capacity"`
	IsActive    *bool      `json:"is_active"`
}

// EventResponse is the public event shape.
type EventResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Venue            string    `json:"venue,omitempty"`
	StartsAt         time.Time `json:"starts_at"`
	Price            int64     `json:"price"`
	Capacity         int       `json:"capacity"`
	AvailableTickets int       `json:"available_tickets"`
	IsActive         bool      `json:"is_active"`
}

package event

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input carries the organizer-editable fields of an event. StartsAt must lie
// in the future on create, and on update whenever it changes.
type Input struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	Location    string    `json:"location" validate:"required,max=200"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
}

const startsAtRule = "future"

// ListFilter narrows List. Zero values mean no restriction.
type ListFilter struct {
	CreatedBy    uuid.UUID
	UpcomingOnly bool
	Limit        int
	Offset       int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

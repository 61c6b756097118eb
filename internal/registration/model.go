package registration

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinFeedback = 1
	MaxFeedback = 5
)

// Registration links an attendee to an event.
type Registration struct {
	ID            uuid.UUID `json:"id"`
	EventID       uuid.UUID `json:"event_id"`
	UserID        uuid.UUID `json:"user_id"`
	Confirmed     bool      `json:"confirmed"`
	FeedbackScore *int      `json:"feedback_score,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FeedbackInput is the body of a feedback submission.
type FeedbackInput struct {
	Rating int `json:"rating" validate:"required,gte=1,lte=5"`
}

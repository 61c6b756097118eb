package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/eventflow/internal/apperr"
)

type signup struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,role"`
}

type meetup struct {
	Title    string    `json:"title" validate:"required,max=10"`
	StartsAt time.Time `json:"starts_at" validate:"required,future"`
	Rating   int       `json:"rating" validate:"omitempty,gte=1,lte=5"`
}

func TestValidate(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		in        any
		wantField string
		wantMsg   string
	}{
		{"valid signup", signup{Email: "a@x.com", Role: "organizer"}, "", ""},
		{"missing email", signup{Role: "attendee"}, "email", "field is required"},
		{"bad email", signup{Email: "nope", Role: "attendee"}, "email", "invalid email format"},
		{"unknown role", signup{Email: "a@x.com", Role: "admin"}, "role", `must be "attendee" or "organizer"`},
		{"title too long", meetup{Title: "a very long title", StartsAt: future}, "title", "must be at most 10 characters"},
		{"past date", meetup{Title: "ok", StartsAt: time.Now().Add(-time.Hour)}, "starts_at", "date must be in the future"},
		{"rating out of range", meetup{Title: "ok", StartsAt: future, Rating: 9}, "rating", "must be at most 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(context.Background(), tt.in)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperr.ErrValidation)
			var ve *apperr.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Equal(t, tt.wantMsg, ve.Reason)
		})
	}
}

func TestVar(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, Var(ctx, "email", "a@x.com", "required,email"))

	err := Var(ctx, "email", "not-an-email", "required,email")
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)
	assert.Equal(t, "invalid email format", ve.Reason)

	err = Var(ctx, "email", "", "required,email")
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "field is required", ve.Reason)
}

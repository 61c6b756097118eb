package registration

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/redmonkez12/eventflow/internal/auth"
)

func newRegistrationRouter(svc *Service, p auth.Principal) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	})
	r.Route("/events/{id}", func(r chi.Router) {
		r.Post("/registrations", h.Register)
		r.Delete("/registrations", h.Unregister)
		r.Get("/registrations", h.List)
		r.Post("/registrations/{userID}/confirm", h.Confirm)
		r.Post("/feedback", h.Feedback)
	})
	return r
}

func TestHandler_Flow(t *testing.T) {
	f := newFixture()
	a := newAttendee()
	base := "/events/" + f.eventID.String()

	steps := []struct {
		name   string
		p      auth.Principal
		method string
		path   string
		body   string
		status int
	}{
		{"register", a, http.MethodPost, base + "/registrations", "", http.StatusCreated},
		{"register twice", a, http.MethodPost, base + "/registrations", "", http.StatusConflict},
		{"register unknown event", a, http.MethodPost, "/events/" + uuid.NewString() + "/registrations", "", http.StatusNotFound},
		{"bad event id", a, http.MethodPost, "/events/nope/registrations", "", http.StatusBadRequest},
		{"attendee cannot list", a, http.MethodGet, base + "/registrations", "", http.StatusForbidden},
		{"owner lists", f.owner, http.MethodGet, base + "/registrations", "", http.StatusOK},
		{"owner confirms", f.owner, http.MethodPost, base + "/registrations/" + a.UserID.String() + "/confirm", "", http.StatusOK},
		{"rating out of range", a, http.MethodPost, base + "/feedback", `{"rating": 9}`, http.StatusBadRequest},
		{"malformed feedback", a, http.MethodPost, base + "/feedback", `{`, http.StatusBadRequest},
		{"feedback", a, http.MethodPost, base + "/feedback", `{"rating": 5}`, http.StatusOK},
		{"feedback twice", a, http.MethodPost, base + "/feedback", `{"rating": 3}`, http.StatusConflict},
		{"unregister", a, http.MethodDelete, base + "/registrations", "", http.StatusNoContent},
		{"unregister again", a, http.MethodDelete, base + "/registrations", "", http.StatusNotFound},
	}

	for _, s := range steps {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(s.method, s.path, strings.NewReader(s.body))
		newRegistrationRouter(f.svc, s.p).ServeHTTP(rec, req)
		assert.Equal(t, s.status, rec.Code, "%s: %s", s.name, rec.Body.String())
	}
}

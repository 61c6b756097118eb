package engagement

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/eventflow/internal/auth"
	"github.com/redmonkez12/eventflow/internal/user"
)

func serveEngagement(svc *Service, p auth.Principal, method, path string) *httptest.ResponseRecorder {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	})
	r.Get("/events/{id}/engagement", h.Get)
	r.Post("/events/{id}/engagement/recompute", h.Recompute)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHandler_Engagement(t *testing.T) {
	f := newScoreFixture()
	f.regs.regs[f.eventID] = registrations(60, 50)
	base := "/events/" + f.eventID.String()

	rec := serveEngagement(f.svc, f.owner, http.MethodGet, base+"/engagement")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var score Score
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &score))
	assert.InDelta(t, 4.0, score.TotalScore, 1e-9)

	rec = serveEngagement(f.svc, f.owner, http.MethodPost, base+"/engagement/recompute")
	assert.Equal(t, http.StatusOK, rec.Code)

	other := auth.Principal{UserID: uuid.New(), Role: user.RoleOrganizer}
	rec = serveEngagement(f.svc, other, http.MethodGet, base+"/engagement")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serveEngagement(f.svc, f.owner, http.MethodGet, "/events/"+uuid.NewString()+"/engagement")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.regs.err = assert.AnError
	rec = serveEngagement(f.svc, f.owner, http.MethodPost, base+"/engagement/recompute")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

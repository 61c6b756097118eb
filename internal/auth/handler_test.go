package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/eventflow/internal/httputil"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/user"
)

type stubLimiter struct {
	exceeded bool
	counted  int
}

func (s *stubLimiter) AllowIPRequestWithPurpose(context.Context, string, string) (bool, error) {
	s.counted++
	return !s.exceeded, nil
}

func (s *stubLimiter) AcquireEmailCooldown(context.Context, string) (bool, error) { return true, nil }

func newAuthRouter(h *serviceHarness, limiter RateLimiter) http.Handler {
	handler := NewHandler(h.svc, limiter)
	mw := NewMiddleware(h.gate)

	r := chi.NewRouter()
	r.Post("/auth/register", handler.Register)
	r.Post("/auth/login", handler.Login)
	r.Get("/auth/verify-email", handler.VerifyEmail)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.Post("/auth/logout", handler.Logout)
		r.Get("/auth/me", handler.Me)
		r.With(RequireRole(user.RoleOrganizer)).Get("/organizer-only", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandler_RegisterLoginMe(t *testing.T) {
	h := newServiceHarness(t, Options{})
	router := newAuthRouter(h, nil)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "org@example.com", Password: strongPassword, Role: "organizer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	h.svc.Wait()

	var session SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, user.RoleOrganizer, session.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{Email: "org@example.com", Password: strongPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "org@example.com", me.Email)

	rec = doJSON(t, router, http.MethodGet, "/organizer-only", session.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_RegisterErrors(t *testing.T) {
	h := newServiceHarness(t, Options{})
	router := newAuthRouter(h, nil)
	h.register(t, "taken@example.com", user.RoleAttendee)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"duplicate email", RegisterRequest{Email: "taken@example.com", Password: strongPassword, Role: "attendee"}, http.StatusConflict, httputil.CodeEmailAlreadyExists},
		{"unknown role", RegisterRequest{Email: "n@example.com", Password: strongPassword, Role: "admin"}, http.StatusBadRequest, httputil.CodeValidationFailed},
		{"weak password", RegisterRequest{Email: "n@example.com", Password: "weak", Role: "attendee"}, http.StatusBadRequest, httputil.CodeValidationFailed},
		{"missing fields", map[string]string{}, http.StatusBadRequest, httputil.CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestHandler_InvalidBody(t *testing.T) {
	h := newServiceHarness(t, Options{})
	router := newAuthRouter(h, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidRequestBody, decodeError(t, rec).Code)
}

func TestHandler_LoginFailuresAreUniform(t *testing.T) {
	h := newServiceHarness(t, Options{})
	router := newAuthRouter(h, nil)
	h.register(t, "a@example.com", user.RoleAttendee)

	wrong := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{Email: "a@example.com", Password: "Wrong#123"})
	unknown := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{Email: "x@example.com", Password: "Wrong#123"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestHandler_RateLimited(t *testing.T) {
	h := newServiceHarness(t, Options{})
	limiter := &stubLimiter{exceeded: true}
	router := newAuthRouter(h, limiter)

	rec := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{Email: "a@example.com", Password: "x"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, httputil.CodeTooManyRequests, decodeError(t, rec).Code)
	assert.Equal(t, 1, limiter.counted)

	limiter.exceeded = false
	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{Email: "a@example.com", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 2, limiter.counted)
}

func TestRequireAuth_UniformRejection(t *testing.T) {
	h := newServiceHarness(t, Options{})
	router := newAuthRouter(h, nil)
	session := h.register(t, "a@example.com", user.RoleAttendee)

	other := newTestJWT(t, otherJWTSecret, h.clock)
	forged, err := other.Issue(session.User.ID, user.RoleAttendee, time.Hour)
	require.NoError(t, err)

	expired, err := h.tokens.Issue(session.User.ID, user.RoleAttendee, time.Nanosecond)
	require.NoError(t, err)

	cases := map[string]string{
		"missing": "",
		"garbage": "garbage",
		"forged":  forged,
		"expired": expired,
	}

	var bodies []string
	for name, token := range cases {
		rec := doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		bodies = append(bodies, rec.Body.String())
	}
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "bearer "+session.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "scheme is case-insensitive")
}

func TestRequireRole_Forbidden(t *testing.T) {
	h := newServiceHarness(t, Options{})
	router := newAuthRouter(h, nil)
	session := h.register(t, "a@example.com", user.RoleAttendee)

	rec := doJSON(t, router, http.MethodGet, "/organizer-only", session.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, httputil.CodeForbidden, decodeError(t, rec).Code)
}

func TestHandler_Logout(t *testing.T) {
	h := newServiceHarness(t, Options{})
	router := newAuthRouter(h, nil)
	session := h.register(t, "a@example.com", user.RoleAttendee)

	rec := doJSON(t, router, http.MethodPost, "/auth/logout", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", session.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_VerifyEmail(t *testing.T) {
	h := newServiceHarness(t, Options{})
	router := newAuthRouter(h, nil)
	h.register(t, "a@example.com", user.RoleAttendee)

	rec := doJSON(t, router, http.MethodGet, "/auth/verify-email", "", nil)
	assert.Equal(t, httputil.CodeVerificationTokenRequired, decodeError(t, rec).Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/verify-email?token=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeVerificationFailed, decodeError(t, rec).Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/verify-email?token="+h.mailer.last().token, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_LogsUser(t *testing.T) {
	h := newServiceHarness(t, Options{})
	session := h.register(t, "a@example.com", user.RoleAttendee)

	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(logging.RequestLogger(logging.NewLoggerWithWriter(&buf, false)))
	r.With(NewMiddleware(h.gate).RequireAuth).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		logging.GetLoggerFromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	})

	rec := doJSON(t, r, http.MethodGet, "/auth/me", session.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	want := `"user_id":"` + session.User.ID.String() + `"`
	assert.Contains(t, lines[0], want, "handler logger carries the user")
	assert.Contains(t, lines[1], want, "completion line carries the user")
	assert.Contains(t, lines[1], `"route":"/auth/me"`)
}

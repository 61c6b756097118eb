package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/httputil"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const PrincipalContextKey ContextKey = "principal"

// Middleware handles authentication for protected routes
type Middleware struct {
	gate *Gate
}

func NewMiddleware(gate *Gate) *Middleware {
	return &Middleware{gate: gate}
}

// RequireAuth resolves the bearer token into a Principal stored in the
// request context. Every token failure produces the same 401 body.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		token, ok := bearerToken(r)
		if !ok {
			httputil.RespondErrorWithCode(w, "unauthenticated", httputil.CodeUnauthenticated, http.StatusUnauthorized)
			return
		}

		principal, err := m.gate.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, apperr.ErrTransientStore) {
				httputil.RespondServiceError(w, logger.Logger, err)
				return
			}
			logger.Debug("authentication failed", "reason", err.Error())
			httputil.RespondErrorWithCode(w, "unauthenticated", httputil.CodeUnauthenticated, http.StatusUnauthorized)
			return
		}

		userID := principal.UserID.String()
		logging.SetRequestUser(r.Context(), userID)
		ctx := WithPrincipal(r.Context(), principal)
		ctx = logging.WithLogger(ctx, logger.WithFields(map[string]any{"user_id": userID}))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects principals that do not hold role. It must run after
// RequireAuth.
func RequireRole(role user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httputil.RespondErrorWithCode(w, "unauthenticated", httputil.CodeUnauthenticated, http.StatusUnauthorized)
				return
			}
			if !AuthorizeRole(principal, role) {
				httputil.RespondErrorWithCode(w, ErrInsufficientRole.Message, httputil.CodeForbidden, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFromContext extracts the authenticated principal from the request context
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(Principal)
	return p, ok
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/httputil"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/user"
	"github.com/redmonkez12/eventflow/internal/validation"
)

// RateLimiter is the subset of ratelimit.Limiter the handlers use.
type RateLimiter interface {
	AllowIPRequestWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	AcquireEmailCooldown(ctx context.Context, email string) (bool, error)
}

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	rateLimiter RateLimiter
}

func NewHandler(service *Service, rateLimiter RateLimiter) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,role"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents the change password request body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ResendVerificationRequest represents the resend verification email request
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Role          user.Role `json:"role"`
	EmailVerified bool      `json:"email_verified"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	Role        user.Role    `json:"role"`
	User        UserResponse `json:"user"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create an attendee or organizer account. Returns an access token; a verification email is sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration credentials"
// @Success      201 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.rateLimited(w, r, "register") {
		return
	}

	var req RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := h.service.Register(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("registration failed: email already exists")
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
			return
		}
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	logger.Info("user registered successfully", "user_id", session.User.ID)
	httputil.RespondJSON(w, toSessionResponse(session), http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password and receive an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      403 {object} httputil.ErrorResponse "Email not verified"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.rateLimited(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailNotVerified) {
			logger.Warn("login failed: email not verified")
			httputil.RespondErrorWithCode(w, ErrEmailNotVerified.Message, httputil.CodeEmailNotVerified, http.StatusForbidden)
			return
		}
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	logger.Info("user logged in successfully", "user_id", session.User.ID)
	httputil.RespondJSON(w, toSessionResponse(session), http.StatusOK)
}

// Logout revokes the presented access token
// @Summary      User logout
// @Description  Revoke the current access token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.MessageResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      503 {object} httputil.ErrorResponse
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.Logout(r.Context(), principal); err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondMessage(w, "logged out", http.StatusOK)
}

// Me returns the authenticated user's profile
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := PrincipalFromContext(r.Context())

	u, err := h.service.Me(r.Context(), principal)
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondJSON(w, toUserResponse(u), http.StatusOK)
}

// ChangePassword changes the authenticated user's password
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "Current and new password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/change-password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := PrincipalFromContext(r.Context())

	var req ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), principal, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondMessage(w, "password changed", http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Verify a user's email address using the verification token sent via email
// @Tags         auth
// @Produce      json
// @Param        token query string true "Verification token"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired token"
// @Router       /auth/verify-email [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.RespondErrorWithCode(w, "verification token required", httputil.CodeVerificationTokenRequired, http.StatusBadRequest)
		return
	}

	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, ErrVerificationExpired):
			httputil.RespondErrorWithCode(w, "Verification link has expired. Please request a new one.", httputil.CodeTokenExpired, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidVerificationToken):
			httputil.RespondErrorWithCode(w, "Invalid verification token.", httputil.CodeVerificationFailed, http.StatusBadRequest)
		default:
			httputil.RespondServiceError(w, logger.Logger, err)
		}
		return
	}

	logger.Info("email verified successfully")
	httputil.RespondMessage(w, "Email verified successfully.", http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Send a password reset link. Always returns success to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      429 {object} httputil.ErrorResponse
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if h.rateLimited(w, r, "forgot-password") || h.onCooldown(w, r, req.Email) {
		return
	}

	_ = h.service.RequestPasswordReset(r.Context(), req.Email)

	httputil.RespondMessage(w, "If an account exists with that email, a password reset link has been sent.", http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or token"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, ErrPasswordResetTokenNotFound) {
			httputil.RespondErrorWithCode(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
			return
		}
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondMessage(w, "Password reset successfully. You can now login with your new password.", http.StatusOK)
}

// ResendVerificationEmail handles resending verification email
// @Summary      Resend verification email
// @Description  Always returns success to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResendVerificationRequest true "Email address"
// @Success      200 {object} httputil.MessageResponse
// @Failure      429 {object} httputil.ErrorResponse
// @Router       /auth/resend-verification [post]
func (h *Handler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if !decode(w, r, &req) {
		return
	}

	if h.rateLimited(w, r, "resend-verification") || h.onCooldown(w, r, req.Email) {
		return
	}

	_ = h.service.ResendVerificationEmail(r.Context(), req.Email)

	httputil.RespondMessage(w, "If your email is registered and not verified, a new verification link has been sent.", http.StatusOK)
}

// rateLimited counts the request against the per-IP budget for purpose.
// Limiter errors let the request through.
func (h *Handler) rateLimited(w http.ResponseWriter, r *http.Request, purpose string) bool {
	if h.rateLimiter == nil {
		return false
	}
	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	allowed, err := h.rateLimiter.AllowIPRequestWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return false
	}
	if !allowed {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}
	return false
}

func (h *Handler) onCooldown(w http.ResponseWriter, r *http.Request, email string) bool {
	if h.rateLimiter == nil {
		return false
	}
	logger := logging.GetLoggerFromContext(r.Context())

	acquired, err := h.rateLimiter.AcquireEmailCooldown(r.Context(), email)
	if err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
		return false
	}
	if !acquired {
		httputil.RespondErrorWithCode(w, "please wait before requesting another email", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return true
	}
	return false
}

// decode reads a JSON body into dst and runs struct validation. It writes the
// 400 response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("invalid request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return false
	}
	if err := validation.Validate(r.Context(), dst); err != nil {
		if !errors.Is(err, apperr.ErrValidation) {
			logger.Error("request validation failed", "error", err.Error())
		}
		httputil.RespondServiceError(w, logger.Logger, err)
		return false
	}
	return true
}

// getClientIP extracts the client IP address. chi's RealIP middleware has
// already resolved proxy headers into RemoteAddr.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}

func toSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
		ExpiresIn:   s.ExpiresIn,
		Role:        s.Role,
		User:        toUserResponse(s.User),
	}
}

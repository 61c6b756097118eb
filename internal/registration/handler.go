package registration

import (
	"encoding/json"
	"net/http"

	"github.com/redmonkez12/eventflow/internal/auth"
	"github.com/redmonkez12/eventflow/internal/httputil"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/validation"
)

// Handler contains HTTP handlers for registration endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register handles event registration
// @Summary      Register for an event
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Event ID"
// @Success      201 {object} Registration
// @Failure      403 {object} httputil.ErrorResponse "Not an attendee"
// @Failure      404 {object} httputil.ErrorResponse "Event not found"
// @Failure      409 {object} httputil.ErrorResponse "Already registered"
// @Router       /events/{id}/registrations [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())

	eventID, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	reg, err := h.service.Register(r.Context(), principal, eventID)
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondJSON(w, reg, http.StatusCreated)
}

// Unregister handles cancelling a registration
// @Summary      Cancel registration
// @Tags         registrations
// @Security     BearerAuth
// @Param        id path string true "Event ID"
// @Success      204
// @Failure      404 {object} httputil.ErrorResponse "Not registered"
// @Router       /events/{id}/registrations [delete]
func (h *Handler) Unregister(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())

	eventID, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	if err := h.service.Unregister(r.Context(), principal, eventID); err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles listing an event's registrations
// @Summary      List registrations
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Event ID"
// @Success      200 {array} Registration
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /events/{id}/registrations [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())

	eventID, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	regs, err := h.service.ListForEvent(r.Context(), principal, eventID)
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondJSON(w, regs, http.StatusOK)
}

// Confirm handles attendance confirmation
// @Summary      Confirm attendance
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id     path string true "Event ID"
// @Param        userID path string true "Attendee user ID"
// @Success      200 {object} httputil.MessageResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /events/{id}/registrations/{userID}/confirm [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())

	eventID, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}
	attendeeID, err := httputil.PathUUID(r, "userID")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	if err := h.service.ConfirmAttendance(r.Context(), principal, eventID, attendeeID); err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondMessage(w, "attendance confirmed", http.StatusOK)
}

// Feedback handles feedback submission
// @Summary      Submit feedback
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Event ID"
// @Param        request body FeedbackInput true "Rating 1-5"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse "Not registered"
// @Failure      409 {object} httputil.ErrorResponse "Feedback already submitted"
// @Router       /events/{id}/feedback [post]
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())

	eventID, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	var in FeedbackInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if err := validation.Validate(r.Context(), &in); err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	if err := h.service.SubmitFeedback(r.Context(), principal, eventID, in.Rating); err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondMessage(w, "feedback recorded", http.StatusOK)
}

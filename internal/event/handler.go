package event

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/redmonkez12/eventflow/internal/auth"
	"github.com/redmonkez12/eventflow/internal/httputil"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/validation"
)

// Handler contains HTTP handlers for event endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles event creation
// @Summary      Create event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body Input true "Event"
// @Success      201 {object} Event
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse "Not an organizer"
// @Router       /events [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())

	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	e, err := h.service.Create(r.Context(), principal, in)
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondJSON(w, e, http.StatusCreated)
}

// List handles event listing
// @Summary      List events
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        mine      query bool false "Only events created by the caller"
// @Param        upcoming  query bool false "Only events that have not started"
// @Param        limit     query int  false "Page size (default 50, max 200)"
// @Param        offset    query int  false "Page offset"
// @Success      200 {array} Event
// @Router       /events [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())
	q := r.URL.Query()

	var f ListFilter
	if q.Get("mine") == "true" {
		f.CreatedBy = principal.UserID
	}
	f.UpcomingOnly = q.Get("upcoming") == "true"
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		f.Offset = offset
	}

	events, err := h.service.List(r.Context(), f)
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondJSON(w, events, http.StatusOK)
}

// Get handles fetching a single event
// @Summary      Get event
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Event ID"
// @Success      200 {object} Event
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /events/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondJSON(w, e, http.StatusOK)
}

// Update handles event updates
// @Summary      Update event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Event ID"
// @Param        request body Input true "Event"
// @Success      200 {object} Event
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /events/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())

	id, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	e, err := h.service.Update(r.Context(), principal, id, in)
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondJSON(w, e, http.StatusOK)
}

// Delete handles event deletion
// @Summary      Delete event
// @Tags         events
// @Security     BearerAuth
// @Param        id path string true "Event ID"
// @Success      204
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /events/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())

	id, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	logger := logging.GetLoggerFromContext(r.Context())

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		logger.Warn("invalid event body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return Input{}, false
	}
	if err := validation.Validate(r.Context(), &in); err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return Input{}, false
	}
	return in, true
}

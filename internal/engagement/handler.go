package engagement

import (
	"net/http"

	"github.com/redmonkez12/eventflow/internal/auth"
	"github.com/redmonkez12/eventflow/internal/httputil"
	"github.com/redmonkez12/eventflow/internal/logging"
)

// Handler contains HTTP handlers for engagement endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get returns the event's engagement score
// @Summary      Get engagement score
// @Description  Returns the stored score, computing it if the event has none yet.
// @Tags         engagement
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Event ID"
// @Success      200 {object} Score
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      503 {object} httputil.ErrorResponse
// @Router       /events/{id}/engagement [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())

	eventID, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	score, err := h.service.GetScore(r.Context(), principal, eventID)
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondJSON(w, score, http.StatusOK)
}

// Recompute forces a fresh computation
// @Summary      Recompute engagement score
// @Tags         engagement
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Event ID"
// @Success      200 {object} Score
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      503 {object} httputil.ErrorResponse
// @Router       /events/{id}/engagement/recompute [post]
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, _ := auth.PrincipalFromContext(r.Context())

	eventID, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	score, err := h.service.Recompute(r.Context(), principal, eventID)
	if err != nil {
		httputil.RespondServiceError(w, logger.Logger, err)
		return
	}

	httputil.RespondJSON(w, score, http.StatusOK)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mindfusion/backend/internal/observability"
	"github.com/mindfusion/backend/middleware"
	"github.com/mindfusion/backend/models"
	"github.com/mindfusion/backend/services"
	"github.com/mindfusion/backend/utils"
)

// OutcomeReader loads the stored outcome trail of one request
type OutcomeReader interface {
	GetByRequestID(ctx context.Context, requestID string) ([]*models.OutcomeRecord, error)
}

type outcomeLookup struct {
	RequestID string `validate:"required,max=128"`
}

// OutcomeTrailResponse is the body of GET /api/requests/{id}
type OutcomeTrailResponse struct {
	RequestID string                  `json:"request_id"`
	Outcomes  []*models.OutcomeRecord `json:"outcomes"`
}

// OutcomeHandler serves the per-provider outcome trail
type OutcomeHandler struct {
	reader         OutcomeReader
	logger         *zap.Logger
	exposeInternal bool
}

// NewOutcomeHandler creates a new OutcomeHandler
func NewOutcomeHandler(reader OutcomeReader, logger *zap.Logger, exposeInternal bool) *OutcomeHandler {
	return &OutcomeHandler{
		reader:         reader,
		logger:         logger,
		exposeInternal: exposeInternal,
	}
}

// HandleGetRequest handles GET /api/requests/{id}
func (h *OutcomeHandler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	lookup := outcomeLookup{RequestID: chi.URLParam(r, "id")}
	if err := utils.ValidateStruct(&lookup); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request id", "")
		return
	}

	records, err := h.reader.GetByRequestID(r.Context(), lookup.RequestID)
	if err != nil {
		logger := observability.WithRequest(h.logger, r.Context())
		HandleServiceError(w, r, services.WrapInternal("failed to load request outcomes", err), logger, h.exposeInternal)
		return
	}
	if len(records) == 0 {
		_ = utils.WriteNotFound(w, "Request not found", middleware.GetRequestIDFromContext(r.Context()))
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, OutcomeTrailResponse{
		RequestID: lookup.RequestID,
		Outcomes:  records,
	})
}

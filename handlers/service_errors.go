package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mindfusion/backend/middleware"
	"github.com/mindfusion/backend/services"
	"github.com/mindfusion/backend/utils"
)

// noSuccessResponse is the 500 body when every provider failed
type noSuccessResponse struct {
	Error     string      `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
	Responses interface{} `json:"responses"`
}

// HandleServiceError maps domain errors to HTTP responses. Error text is only
// exposed when exposeInternal is set, and for internal domain errors only the
// message is shown, never the wrapped cause.
func HandleServiceError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger, exposeInternal bool) {
	if err == nil {
		return
	}

	requestID := middleware.GetRequestIDFromContext(r.Context())
	var writeErr error

	switch {
	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, services.GetErrorMessage(err), "")

	case services.IsNoSuccessError(err):
		writeErr = utils.WriteJSON(w, http.StatusInternalServerError, noSuccessResponse{
			Error:     services.GetErrorMessage(err),
			RequestID: requestID,
			Responses: services.GetErrorDetails(err)["responses"],
		})

	default:
		logger.Error("request failed",
			zap.String("request_id", requestID),
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Error(err))

		message := ""
		switch {
		case !exposeInternal:
		case services.IsInternalError(err):
			message = services.GetErrorMessage(err)
		default:
			message = err.Error()
		}
		writeErr = utils.WriteInternalServerError(w, message, requestID)
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

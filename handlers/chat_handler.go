package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mindfusion/backend/internal/observability"
	"github.com/mindfusion/backend/middleware"
	"github.com/mindfusion/backend/services/chat"
	"github.com/mindfusion/backend/utils"
)

const maxChatBodyBytes = 64 << 10

// ChatService answers one question across all providers
type ChatService interface {
	Ask(ctx context.Context, req chat.Request) (*chat.ResponsePayload, error)
}

// ChatRequest is the body of POST /api/chat. An empty question is reported
// by the service so the client sees the canonical message.
type ChatRequest struct {
	Question string `json:"question"`
	Lang     string `json:"lang,omitempty" validate:"max=35"`
}

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	service        ChatService
	logger         *zap.Logger
	exposeInternal bool
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, logger *zap.Logger, exposeInternal bool) *ChatHandler {
	return &ChatHandler{
		service:        service,
		logger:         logger,
		exposeInternal: exposeInternal,
	}
}

// HandleChat handles POST /api/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	logger := observability.WithRequest(h.logger, r.Context())

	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	// An empty body decodes as an empty question.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Debug("invalid chat body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", "")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		msg := err.Error()
		if field, ok := utils.GetValidationFields(err)["Lang"]; ok {
			msg = field
		}
		_ = utils.WriteBadRequest(w, msg, "")
		return
	}

	payload, err := h.service.Ask(r.Context(), chat.Request{
		Question:  req.Question,
		Lang:      strings.TrimSpace(req.Lang),
		RequestID: middleware.GetRequestIDFromContext(r.Context()),
	})
	if err != nil {
		HandleServiceError(w, r, err, logger, h.exposeInternal)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, payload); err != nil {
		logger.Error("failed to write chat response", zap.Error(err))
	}
}

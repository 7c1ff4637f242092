package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mindfusion/backend/middleware"
	"github.com/mindfusion/backend/services"
	"github.com/mindfusion/backend/services/aggregate"
	"github.com/mindfusion/backend/services/providers"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		exposeInternal bool
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "validation error",
			err:            services.ErrQuestionRequired,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Question is required",
		},
		{
			name:           "internal error hidden",
			err:            services.WrapInternal("dispatch", errors.New("boom")),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Internal server error",
		},
		{
			name:           "internal domain error exposes message without cause",
			err:            services.WrapInternal("provider dispatch failed", errors.New("panic: nil map\ngoroutine 7 [running]:\nmain.main()")),
			exposeInternal: true,
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "provider dispatch failed",
		},
		{
			name:           "internal error exposed",
			err:            errors.New("boom"),
			exposeInternal: true,
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "boom",
		},
		{
			name:           "unknown error hidden",
			err:            errors.New("connection string leaked"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
			w := httptest.NewRecorder()

			HandleServiceError(w, req, tt.err, logger, tt.exposeInternal)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			body := w.Body.String()
			assert.NotContains(t, body, "goroutine")

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(body), &response))
			assert.Equal(t, tt.expectedError, response["error"])
			assert.NotContains(t, response, "stack")
		})
	}
}

func TestHandleServiceError_NoSuccess(t *testing.T) {
	breakdown := providers.Breakdown{
		"chatgpt": providers.Failure(providers.ReasonNetworkError, "timeout"),
		"claude":  providers.Failure(providers.ReasonProviderRejected, "invalid key"),
	}
	err := aggregate.NoSuccessError(breakdown)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req = req.WithContext(middleware.WithRequestID(req.Context(), "req-42"))
	w := httptest.NewRecorder()

	HandleServiceError(w, req, err, zap.NewNop(), false)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response struct {
		Error     string                                `json:"error"`
		RequestID string                                `json:"request_id"`
		Responses map[string]map[string]json.RawMessage `json:"responses"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "All AI providers failed to respond", response.Error)
	assert.Equal(t, "req-42", response.RequestID)
	require.Len(t, response.Responses, 2)
	assert.JSONEq(t, `"NetworkError"`, string(response.Responses["chatgpt"]["reason"]))
	assert.JSONEq(t, `"ProviderRejected"`, string(response.Responses["claude"]["reason"]))
}

func TestHandleServiceError_LogsInternalOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)

	HandleServiceError(httptest.NewRecorder(), req, services.ErrQuestionRequired, logger, false)
	assert.Equal(t, 0, logs.Len())

	HandleServiceError(httptest.NewRecorder(), req, errors.New("boom"), logger, false)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "request failed", logs.All()[0].Message)
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil, zap.NewNop(), false)
	assert.Equal(t, 0, w.Body.Len())
}

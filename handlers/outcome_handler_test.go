package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindfusion/backend/models"
)

type MockOutcomeReader struct {
	mock.Mock
}

func (m *MockOutcomeReader) GetByRequestID(ctx context.Context, requestID string) ([]*models.OutcomeRecord, error) {
	args := m.Called(ctx, requestID)
	if records := args.Get(0); records != nil {
		return records.([]*models.OutcomeRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func getRequest(t *testing.T, h *OutcomeHandler, id string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/requests/{id}", h.HandleGetRequest)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/requests/"+id, nil))
	return w
}

func TestOutcomeHandler_GetRequest(t *testing.T) {
	records := []*models.OutcomeRecord{
		models.NewSuccessRecord("req-1", "chatgpt", 85, 1200*time.Millisecond),
		models.NewFailureRecord("req-1", "claude", "NetworkError", 30*time.Second),
	}

	tests := []struct {
		name           string
		id             string
		records        []*models.OutcomeRecord
		repoErr        error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "found",
			id:             "req-1",
			records:        records,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown request",
			id:             "req-404",
			records:        []*models.OutcomeRecord{},
			expectedStatus: http.StatusNotFound,
			expectedError:  "Request not found",
		},
		{
			name:           "repository failure",
			id:             "req-1",
			repoErr:        errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Internal server error",
		},
		{
			name:           "id too long",
			id:             strings.Repeat("r", 129),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockOutcomeReader)
			if tt.records != nil || tt.repoErr != nil {
				reader.On("GetByRequestID", mock.Anything, tt.id).Return(tt.records, tt.repoErr)
			}

			w := getRequest(t, NewOutcomeHandler(reader, zap.NewNop(), false), tt.id)

			assert.Equal(t, tt.expectedStatus, w.Code)
			reader.AssertExpectations(t)

			if tt.expectedError != "" {
				raw := w.Body.String()
				assert.NotContains(t, raw, "connection reset")

				var body map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(raw), &body))
				assert.Equal(t, tt.expectedError, body["error"])
				return
			}

			var body OutcomeTrailResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, "req-1", body.RequestID)
			require.Len(t, body.Outcomes, 2)
			assert.Equal(t, "chatgpt", body.Outcomes[0].ProviderID)
			assert.Equal(t, models.OutcomeStatusFailure, body.Outcomes[1].Status)
		})
	}
}

package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindfusion/backend/services/providers"
)

func TestAdapter_Invoke(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason providers.FailureReason
		wantText   string
		wantDetail string
	}{
		{
			name:     "success",
			status:   http.StatusOK,
			body:     `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"Hello there"}],"stop_reason":"end_turn"}`,
			wantText: "Hello there",
		},
		{
			name:       "error payload",
			status:     http.StatusOK,
			body:       `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			wantReason: providers.ReasonProviderRejected,
			wantDetail: "Overloaded",
		},
		{
			name:       "empty content",
			status:     http.StatusOK,
			body:       `{"id":"msg_1","type":"message","content":[]}`,
			wantReason: providers.ReasonParseError,
		},
		{
			name:       "blank text",
			status:     http.StatusOK,
			body:       `{"id":"msg_1","type":"message","content":[{"type":"text","text":"   "}]}`,
			wantReason: providers.ReasonParseError,
		},
		{
			name:       "server error status",
			status:     http.StatusInternalServerError,
			body:       `{"type":"error","error":{"type":"api_error","message":"Internal"}}`,
			wantReason: providers.ReasonNetworkError,
			wantDetail: "http status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/messages", r.URL.Path)
				assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
				assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

				var req messagesRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "claude-3-5-sonnet-20241022", req.Model)
				assert.Equal(t, 500, req.MaxTokens)
				assert.Equal(t, []message{{Role: "user", Content: "Hi"}}, req.Messages)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := NewAdapter(providers.Spec{
				ID:          "claude",
				Kind:        providers.KindAnthropic,
				Endpoint:    server.URL,
				APIKey:      "ak-test",
				TrustWeight: 88,
			}, server.Client())

			outcome := adapter.Invoke(context.Background(), providers.Query{Text: "Hi"})

			if tt.wantReason == "" {
				assert.True(t, outcome.IsSuccess())
				assert.Equal(t, tt.wantText, outcome.Text)
				assert.Equal(t, 88, outcome.Confidence)
				return
			}
			assert.False(t, outcome.IsSuccess())
			assert.Equal(t, tt.wantReason, outcome.Reason)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, outcome.Detail)
			}
		})
	}
}

func TestAdapter_Defaults(t *testing.T) {
	adapter := NewAdapter(providers.Spec{ID: "claude"}, nil)

	assert.Equal(t, defaultBaseURL, adapter.Spec().Endpoint)
	assert.Equal(t, defaultModel, adapter.Spec().Model)
	assert.Equal(t, defaultMaxTokens, adapter.Spec().MaxTokens)

	outcome := adapter.Invoke(context.Background(), providers.Query{Text: "Hi"})
	assert.Equal(t, providers.ReasonProviderRejected, outcome.Reason)
}

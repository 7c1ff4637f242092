package gemini

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
			body:     `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hola"}]},"finishReason":"STOP"}]}`,
			wantText: "Hola",
		},
		{
			name:       "error object",
			status:     http.StatusOK,
			body:       `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
			wantReason: providers.ReasonProviderRejected,
			wantDetail: "API key not valid",
		},
		{
			name:       "blocked prompt",
			status:     http.StatusOK,
			body:       `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantReason: providers.ReasonProviderRejected,
			wantDetail: "prompt blocked: SAFETY",
		},
		{
			name:       "no candidates",
			status:     http.StatusOK,
			body:       `{"candidates":[]}`,
			wantReason: providers.ReasonParseError,
		},
		{
			name:       "candidate without content",
			status:     http.StatusOK,
			body:       `{"candidates":[{"finishReason":"MAX_TOKENS"}]}`,
			wantReason: providers.ReasonParseError,
		},
		{
			name:       "not found status",
			status:     http.StatusNotFound,
			body:       `{"error":{"code":404,"message":"model not found","status":"NOT_FOUND"}}`,
			wantReason: providers.ReasonNetworkError,
			wantDetail: "http status 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/models/gemini-pro:generateContent", r.URL.Path)
				assert.Equal(t, "gk-test", r.URL.Query().Get("key"))

				var req generateContentRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				if assert.Len(t, req.Contents, 1) && assert.Len(t, req.Contents[0].Parts, 1) {
					assert.Equal(t, "Hi", req.Contents[0].Parts[0].Text)
				}

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := NewAdapter(providers.Spec{
				ID:          "gemini",
				Kind:        providers.KindGemini,
				Endpoint:    server.URL,
				APIKey:      "gk-test",
				TrustWeight: 90,
			}, server.Client())

			outcome := adapter.Invoke(context.Background(), providers.Query{Text: "Hi"})

			if tt.wantReason == "" {
				assert.True(t, outcome.IsSuccess())
				assert.Equal(t, tt.wantText, outcome.Text)
				assert.Equal(t, 90, outcome.Confidence)
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

func TestAdapter_EndpointURL(t *testing.T) {
	adapter := NewAdapter(providers.Spec{ID: "gemini", APIKey: "a b"}, nil)

	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent?key=a+b",
		adapter.endpointURL())
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON(t *testing.T) {
	t.Run("returns body of 2xx reply and sends headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "hello", body["q"])

			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		body, err := PostJSON(context.Background(), server.Client(), "claude", server.URL,
			map[string]string{"x-api-key": "secret"}, map[string]string{"q": "hello"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
	})

	t.Run("non-2xx is a network error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
		}))
		defer server.Close()

		_, err := PostJSON(context.Background(), server.Client(), "claude", server.URL, nil, struct{}{})
		require.Error(t, err)

		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.Equal(t, ReasonNetworkError, provErr.Reason)
		assert.Equal(t, http.StatusServiceUnavailable, provErr.StatusCode)
		assert.Equal(t, "http status 503", provErr.Message)
	})

	t.Run("oversized reply is a parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"text":"`))
			_, _ = w.Write(bytes.Repeat([]byte("a"), maxReplyBytes))
			_, _ = w.Write([]byte(`"}`))
		}))
		defer server.Close()

		body, err := PostJSON(context.Background(), server.Client(), "claude", server.URL, nil, struct{}{})
		assert.Nil(t, body)

		o := FailureFrom(err)
		assert.Equal(t, ReasonParseError, o.Reason)
		assert.Equal(t, "reply too large", o.Detail)
	})

	t.Run("reply at the size cap is returned whole", func(t *testing.T) {
		payload := bytes.Repeat([]byte("a"), maxReplyBytes)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(payload)
		}))
		defer server.Close()

		body, err := PostJSON(context.Background(), server.Client(), "claude", server.URL, nil, struct{}{})
		require.NoError(t, err)
		assert.Len(t, body, maxReplyBytes)
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := PostJSON(ctx, server.Client(), "gemini", server.URL, nil, struct{}{})
		o := FailureFrom(err)
		assert.Equal(t, ReasonNetworkError, o.Reason)
		assert.Equal(t, "deadline exceeded", o.Detail)
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := PostJSON(context.Background(), http.DefaultClient, "chatgpt", url, nil, struct{}{})
		o := FailureFrom(err)
		assert.Equal(t, ReasonNetworkError, o.Reason)
		assert.Equal(t, "connection failed", o.Detail)
	})
}

func TestDecodeReply(t *testing.T) {
	type reply struct {
		Text string `json:"text"`
	}

	t.Run("valid json", func(t *testing.T) {
		var r reply
		require.NoError(t, DecodeReply("chatgpt", []byte(`{"text":"hi"}`), &r))
		assert.Equal(t, "hi", r.Text)
	})

	t.Run("malformed but complete json is repaired", func(t *testing.T) {
		var r reply
		require.NoError(t, DecodeReply("chatgpt", []byte(`{"text":"hi",}`), &r))
		assert.Equal(t, "hi", r.Text)
	})

	t.Run("truncated json is a parse error", func(t *testing.T) {
		for _, body := range []string{
			`{"text":"The capital of France is`,
			`{"text":"hi"`,
		} {
			var r reply
			err := DecodeReply("chatgpt", []byte(body), &r)
			o := FailureFrom(err)
			assert.Equal(t, ReasonParseError, o.Reason, body)
			assert.Equal(t, "truncated reply", o.Detail, body)
			assert.Empty(t, r.Text, body)
		}
	})

	t.Run("wrong shape is a parse error", func(t *testing.T) {
		var r reply
		err := DecodeReply("chatgpt", []byte(`{"text":42}`), &r)
		assert.Equal(t, ReasonParseError, FailureFrom(err).Reason)
	})

	t.Run("empty body is a parse error", func(t *testing.T) {
		var r reply
		err := DecodeReply("chatgpt", []byte(``), &r)
		assert.Equal(t, ReasonParseError, FailureFrom(err).Reason)
	})
}

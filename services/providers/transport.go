package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kaptinlin/jsonrepair"
)

// maxReplyBytes caps how much of a provider reply is read
const maxReplyBytes = 4 << 20

// PostJSON marshals body, POSTs it to url with the given headers, and returns
// the raw body of a 2xx reply. Transport failures, non-2xx statuses, and
// deadline expiry are reported as NetworkError.
func PostJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, NewProviderError(provider, ReasonNetworkError, "failed to encode request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, NewProviderError(provider, ReasonNetworkError, "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, NewProviderError(provider, ReasonNetworkError, transportMessage(ctx, err), 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxReplyBytes+1))
	if err != nil {
		return nil, NewProviderError(provider, ReasonNetworkError, transportMessage(ctx, err), httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, NewProviderError(provider, ReasonNetworkError,
			fmt.Sprintf("http status %d", httpResp.StatusCode), httpResp.StatusCode, nil)
	}

	if len(respBody) > maxReplyBytes {
		return nil, NewProviderError(provider, ReasonParseError, "reply too large", httpResp.StatusCode, nil)
	}

	return respBody, nil
}

// DecodeReply unmarshals a provider reply into v. A complete body with a
// syntax error goes through one repair pass; a truncated body is always a
// ParseError so a cut-off answer never counts as a success.
func DecodeReply(provider string, body []byte, v interface{}) error {
	err := json.NewDecoder(bytes.NewReader(body)).Decode(v)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, io.EOF):
		return NewProviderError(provider, ReasonParseError, "empty reply", 0, err)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return NewProviderError(provider, ReasonParseError, "truncated reply", 0, err)
	}

	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return NewProviderError(provider, ReasonParseError, "unexpected reply shape", 0, err)
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(body))
	if repairErr != nil {
		return NewProviderError(provider, ReasonParseError, "malformed reply", 0, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return NewProviderError(provider, ReasonParseError, "malformed reply", 0, err)
	}
	return nil
}

func transportMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return "deadline exceeded"
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return "request canceled"
	}
	return "connection failed"
}

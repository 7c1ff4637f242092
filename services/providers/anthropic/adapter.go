package anthropic

import (
	"context"
	"net/http"
	"strings"

	"github.com/mindfusion/backend/services/providers"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-3-5-sonnet-20241022"
	defaultMaxTokens = 500
	apiVersion       = "2023-06-01"
)

// Adapter implements providers.Adapter for the Anthropic Messages API
type Adapter struct {
	spec       providers.Spec
	httpClient *http.Client
}

// NewAdapter creates a new Anthropic adapter
func NewAdapter(spec providers.Spec, client *http.Client) *Adapter {
	if spec.Endpoint == "" {
		spec.Endpoint = defaultBaseURL
	}
	if spec.Model == "" {
		spec.Model = defaultModel
	}
	if spec.MaxTokens == 0 {
		spec.MaxTokens = defaultMaxTokens
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Adapter{spec: spec, httpClient: client}
}

// Build is the providers.AdapterBuilder for KindAnthropic
func Build(spec providers.Spec, client *http.Client) (providers.Adapter, error) {
	return NewAdapter(spec, client), nil
}

// Name returns the provider ID
func (a *Adapter) Name() string { return a.spec.ID }

// Spec returns the adapter configuration
func (a *Adapter) Spec() providers.Spec { return a.spec }

// Invoke performs one Messages API call
func (a *Adapter) Invoke(ctx context.Context, q providers.Query) providers.Outcome {
	if err := providers.RequireCredential(a.spec); err != nil {
		return providers.FailureFrom(err)
	}

	headers := map[string]string{
		"x-api-key":         a.spec.APIKey,
		"anthropic-version": apiVersion,
	}
	body, err := providers.PostJSON(ctx, a.httpClient, a.Name(),
		strings.TrimRight(a.spec.Endpoint, "/")+"/v1/messages", headers, a.buildRequest(q))
	if err != nil {
		return providers.FailureFrom(err)
	}

	text, err := a.parseReply(body)
	if err != nil {
		return providers.FailureFrom(err)
	}
	return providers.Success(text, a.spec.TrustWeight)
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesReply struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Error      *apiError      `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (a *Adapter) buildRequest(q providers.Query) messagesRequest {
	return messagesRequest{
		Model:     a.spec.Model,
		MaxTokens: a.spec.MaxTokens,
		Messages:  []message{{Role: "user", Content: q.Text}},
	}
}

// parseReply extracts content[0].text
func (a *Adapter) parseReply(body []byte) (string, error) {
	var reply messagesReply
	if err := providers.DecodeReply(a.Name(), body, &reply); err != nil {
		return "", err
	}

	if reply.Error != nil || reply.Type == "error" {
		msg := "provider returned an error"
		if reply.Error != nil && reply.Error.Message != "" {
			msg = reply.Error.Message
		}
		return "", providers.NewProviderError(a.Name(), providers.ReasonProviderRejected, msg, 0, nil)
	}

	if len(reply.Content) == 0 {
		return "", providers.NewProviderError(a.Name(), providers.ReasonParseError, "no content blocks in reply", 0, nil)
	}
	text := strings.TrimSpace(reply.Content[0].Text)
	if text == "" {
		return "", providers.NewProviderError(a.Name(), providers.ReasonParseError, "empty text block", 0, nil)
	}
	return text, nil
}

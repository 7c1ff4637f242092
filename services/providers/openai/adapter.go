package openai

import (
	"context"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/mindfusion/backend/services/providers"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = goopenai.GPT4oMini
	defaultMaxTokens = 500
)

// Adapter implements providers.Adapter for the OpenAI chat completions API
type Adapter struct {
	spec       providers.Spec
	httpClient *http.Client
}

// NewAdapter creates a new OpenAI adapter
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

	return &Adapter{
		spec:       spec,
		httpClient: client,
	}
}

// Build is the providers.AdapterBuilder for KindOpenAI
func Build(spec providers.Spec, client *http.Client) (providers.Adapter, error) {
	return NewAdapter(spec, client), nil
}

// Name returns the provider ID
func (a *Adapter) Name() string {
	return a.spec.ID
}

// Spec returns the adapter configuration
func (a *Adapter) Spec() providers.Spec {
	return a.spec
}

// Invoke performs one chat completion call
func (a *Adapter) Invoke(ctx context.Context, q providers.Query) providers.Outcome {
	if err := providers.RequireCredential(a.spec); err != nil {
		return providers.FailureFrom(err)
	}

	body, err := providers.PostJSON(ctx, a.httpClient, a.Name(),
		strings.TrimRight(a.spec.Endpoint, "/")+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + a.spec.APIKey},
		a.buildRequest(q))
	if err != nil {
		return providers.FailureFrom(err)
	}

	text, err := a.parseReply(body)
	if err != nil {
		return providers.FailureFrom(err)
	}
	return providers.Success(text, a.spec.TrustWeight)
}

// buildRequest converts the canonical query to an OpenAI request
func (a *Adapter) buildRequest(q providers.Query) goopenai.ChatCompletionRequest {
	return goopenai.ChatCompletionRequest{
		Model: a.spec.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: q.Text},
		},
		MaxTokens: a.spec.MaxTokens,
	}
}

// chatReply is a completion body that may also carry an error object
type chatReply struct {
	goopenai.ChatCompletionResponse
	Error *goopenai.APIError `json:"error,omitempty"`
}

// parseReply extracts choices[0].message.content
func (a *Adapter) parseReply(body []byte) (string, error) {
	var reply chatReply
	if err := providers.DecodeReply(a.Name(), body, &reply); err != nil {
		return "", err
	}

	if reply.Error != nil {
		msg := reply.Error.Message
		if msg == "" {
			msg = reply.Error.Type
		}
		return "", providers.NewProviderError(a.Name(), providers.ReasonProviderRejected, msg, 0, nil)
	}

	if len(reply.Choices) == 0 {
		return "", providers.NewProviderError(a.Name(), providers.ReasonParseError, "no choices in reply", 0, nil)
	}
	text := strings.TrimSpace(reply.Choices[0].Message.Content)
	if text == "" {
		return "", providers.NewProviderError(a.Name(), providers.ReasonParseError, "empty message content", 0, nil)
	}
	return text, nil
}

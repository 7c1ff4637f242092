package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mindfusion/backend/services/providers"
)

const (
	defaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel     = "gemini-pro"
	defaultMaxTokens = 500
)

// Adapter implements providers.Adapter for the Gemini generateContent API
type Adapter struct {
	spec       providers.Spec
	httpClient *http.Client
}

// NewAdapter creates a new Gemini adapter
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

// Build is the providers.AdapterBuilder for KindGemini
func Build(spec providers.Spec, client *http.Client) (providers.Adapter, error) {
	return NewAdapter(spec, client), nil
}

// Name returns the provider ID
func (a *Adapter) Name() string { return a.spec.ID }

// Spec returns the adapter configuration
func (a *Adapter) Spec() providers.Spec { return a.spec }

// Invoke performs one generateContent call. The API key travels as the
// "key" query parameter.
func (a *Adapter) Invoke(ctx context.Context, q providers.Query) providers.Outcome {
	if err := providers.RequireCredential(a.spec); err != nil {
		return providers.FailureFrom(err)
	}

	body, err := providers.PostJSON(ctx, a.httpClient, a.Name(), a.endpointURL(), nil, a.buildRequest(q))
	if err != nil {
		return providers.FailureFrom(err)
	}

	text, err := a.parseReply(body)
	if err != nil {
		return providers.FailureFrom(err)
	}
	return providers.Success(text, a.spec.TrustWeight)
}

func (a *Adapter) endpointURL() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(a.spec.Endpoint, "/"), url.PathEscape(a.spec.Model), url.QueryEscape(a.spec.APIKey))
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type generateContentReply struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	Error          *apiError       `json:"error,omitempty"`
}

type candidate struct {
	Content      *content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (a *Adapter) buildRequest(q providers.Query) generateContentRequest {
	return generateContentRequest{
		Contents: []content{{Parts: []part{{Text: q.Text}}}},
		GenerationConfig: &generationConfig{
			MaxOutputTokens: a.spec.MaxTokens,
		},
	}
}

// parseReply extracts candidates[0].content.parts[0].text
func (a *Adapter) parseReply(body []byte) (string, error) {
	var reply generateContentReply
	if err := providers.DecodeReply(a.Name(), body, &reply); err != nil {
		return "", err
	}

	if reply.Error != nil {
		msg := reply.Error.Message
		if msg == "" {
			msg = reply.Error.Status
		}
		return "", providers.NewProviderError(a.Name(), providers.ReasonProviderRejected, msg, reply.Error.Code, nil)
	}
	if reply.PromptFeedback != nil && reply.PromptFeedback.BlockReason != "" {
		return "", providers.NewProviderError(a.Name(), providers.ReasonProviderRejected,
			"prompt blocked: "+reply.PromptFeedback.BlockReason, 0, nil)
	}

	if len(reply.Candidates) == 0 {
		return "", providers.NewProviderError(a.Name(), providers.ReasonParseError, "no candidates in reply", 0, nil)
	}
	c := reply.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 {
		return "", providers.NewProviderError(a.Name(), providers.ReasonParseError, "candidate has no parts", 0, nil)
	}
	text := strings.TrimSpace(c.Parts[0].Text)
	if text == "" {
		return "", providers.NewProviderError(a.Name(), providers.ReasonParseError, "empty text part", 0, nil)
	}
	return text, nil
}

package providers

import (
	"context"
	"encoding/json"
	"time"
)

// Adapter is the per-provider capability: build a provider-native request from
// a Query, perform one call, and parse the reply into an Outcome.
//
// Invoke must not panic and must not return partially filled outcomes. All
// transport, parse, and provider errors are reported as Failure outcomes.
type Adapter interface {
	// Name returns the provider identifier (e.g., "chatgpt", "claude", "gemini")
	Name() string

	// Spec returns the static configuration the adapter was built from
	Spec() Spec

	// Invoke performs one call bounded by ctx and returns exactly one outcome
	Invoke(ctx context.Context, q Query) Outcome
}

// Query is the canonical question sent to every provider
type Query struct {
	// Text is the question. Never empty once a Query reaches an adapter.
	Text string `json:"text"`

	// LanguageHint is the optional language the caller asked in (e.g., "en", "es")
	LanguageHint string `json:"lang,omitempty"`
}

// Kind selects the wire protocol an adapter speaks
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGemini    Kind = "gemini"
)

// Spec is the static configuration of one provider. Created at startup and
// shared read-only across requests.
type Spec struct {
	// ID is the breakdown key (e.g., "chatgpt")
	ID string `json:"id" yaml:"id" validate:"required"`

	// Label prefixes this provider's text in the unified answer
	Label string `json:"label" yaml:"label"`

	Kind     Kind   `json:"kind" yaml:"kind" validate:"required,oneof=openai anthropic gemini"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Model    string `json:"model" yaml:"model"`

	// APIKeyEnv names the environment variable the credential is read from
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env"`

	// APIKey is resolved from APIKeyEnv at startup and never serialized
	APIKey string `json:"-" yaml:"-"`

	// TrustWeight is the nominal confidence reported on success, in [0,100].
	// It is a static constant per provider, not derived from the reply.
	TrustWeight int `json:"trust_weight" yaml:"trust_weight" validate:"gte=0,lte=100"`

	MaxTokens int `json:"max_tokens" yaml:"max_tokens" validate:"gt=0"`
}

// HasCredential reports whether an API key was resolved for the provider
func (s Spec) HasCredential() bool {
	return s.APIKey != ""
}

// DisplayLabel returns Label, falling back to ID
func (s Spec) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}

// FailureReason classifies why a provider produced no answer
type FailureReason string

const (
	ReasonNetworkError     FailureReason = "NetworkError"
	ReasonParseError       FailureReason = "ParseError"
	ReasonProviderRejected FailureReason = "ProviderRejected"
)

// Status tags an Outcome
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is the tagged result of one provider invocation. Build it with
// Success or Failure only.
type Outcome struct {
	Status     Status
	Text       string
	Confidence int
	Reason     FailureReason

	// Detail is a short, client-safe description of a failure
	Detail string

	// Latency is filled in by the dispatcher
	Latency time.Duration
}

// Success builds a successful outcome. Confidence is clamped to [0,100].
func Success(text string, confidence int) Outcome {
	return Outcome{
		Status:     StatusSuccess,
		Text:       text,
		Confidence: clampConfidence(confidence),
	}
}

// Failure builds a failed outcome
func Failure(reason FailureReason, detail string) Outcome {
	return Outcome{
		Status: StatusFailure,
		Reason: reason,
		Detail: detail,
	}
}

// IsSuccess reports whether the outcome carries an answer
func (o Outcome) IsSuccess() bool {
	return o.Status == StatusSuccess
}

// WithLatency returns a copy of the outcome with the call latency attached
func (o Outcome) WithLatency(d time.Duration) Outcome {
	o.Latency = d
	return o
}

type outcomeJSON struct {
	Status     Status        `json:"status"`
	Text       string        `json:"text,omitempty"`
	Confidence *int          `json:"confidence,omitempty"`
	Reason     FailureReason `json:"reason,omitempty"`
	Error      string        `json:"error,omitempty"`
	LatencyMs  int64         `json:"latency_ms"`
}

// MarshalJSON emits only the fields of the active variant
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{
		Status:    o.Status,
		LatencyMs: o.Latency.Milliseconds(),
	}
	if o.IsSuccess() {
		confidence := o.Confidence
		out.Text = o.Text
		out.Confidence = &confidence
	} else {
		out.Reason = o.Reason
		out.Error = o.Detail
	}
	return json.Marshal(out)
}

// Breakdown maps provider ID to that provider's outcome for one request
type Breakdown map[string]Outcome

// Successes counts successful outcomes
func (b Breakdown) Successes() int {
	n := 0
	for _, o := range b {
		if o.IsSuccess() {
			n++
		}
	}
	return n
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

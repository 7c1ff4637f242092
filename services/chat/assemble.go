package chat

import (
	"github.com/mindfusion/backend/services/aggregate"
	"github.com/mindfusion/backend/services/providers"
)

// UnifiedAnswer repeats the merged answer under "unified"
type UnifiedAnswer struct {
	Text       string `json:"text"`
	Confidence int    `json:"confidence"`
}

// ResponsePayload is the success body of POST /api/chat
type ResponsePayload struct {
	RequestID  string              `json:"request_id,omitempty"`
	Answer     string              `json:"answer"`
	Confidence int                 `json:"confidence"`
	Responses  providers.Breakdown `json:"responses"`
	Unified    UnifiedAnswer       `json:"unified"`
}

// Assemble packages a unified result and its breakdown. It has no side effects.
func Assemble(u *aggregate.UnifiedResult, b providers.Breakdown) ResponsePayload {
	return ResponsePayload{
		Answer:     u.Text,
		Confidence: u.Confidence,
		Responses:  b,
		Unified: UnifiedAnswer{
			Text:       u.Text,
			Confidence: u.Confidence,
		},
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeStatus mirrors the provider outcome tag
type OutcomeStatus string

const (
	OutcomeStatusSuccess OutcomeStatus = "success"
	OutcomeStatusFailure OutcomeStatus = "failure"
)

// OutcomeRecord is one provider's result for one chat request. Answer text is
// never stored.
type OutcomeRecord struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	RequestID  string        `json:"request_id" db:"request_id"`
	ProviderID string        `json:"provider_id" db:"provider_id"`
	Status     OutcomeStatus `json:"status" db:"status"`
	Reason     *string       `json:"reason,omitempty" db:"reason"`
	Confidence *int          `json:"confidence,omitempty" db:"confidence"`
	LatencyMs  int           `json:"latency_ms" db:"latency_ms"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// NewSuccessRecord creates a record for a provider that answered
func NewSuccessRecord(requestID, providerID string, confidence int, latency time.Duration) *OutcomeRecord {
	return &OutcomeRecord{
		ID:         uuid.New(),
		RequestID:  requestID,
		ProviderID: providerID,
		Status:     OutcomeStatusSuccess,
		Confidence: &confidence,
		LatencyMs:  int(latency.Milliseconds()),
		CreatedAt:  time.Now(),
	}
}

// NewFailureRecord creates a record for a provider that produced no answer
func NewFailureRecord(requestID, providerID, reason string, latency time.Duration) *OutcomeRecord {
	return &OutcomeRecord{
		ID:         uuid.New(),
		RequestID:  requestID,
		ProviderID: providerID,
		Status:     OutcomeStatusFailure,
		Reason:     &reason,
		LatencyMs:  int(latency.Milliseconds()),
		CreatedAt:  time.Now(),
	}
}

// IsSuccess reports whether the provider answered
func (r *OutcomeRecord) IsSuccess() bool {
	return r.Status == OutcomeStatusSuccess
}

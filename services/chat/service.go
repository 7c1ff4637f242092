package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mindfusion/backend/services"
	"github.com/mindfusion/backend/services/aggregate"
	"github.com/mindfusion/backend/services/providers"
)

// Dispatcher fans a query out to every provider
type Dispatcher interface {
	FanOut(ctx context.Context, q providers.Query, perCallTimeout time.Duration) (providers.Breakdown, error)
}

// Recorder receives the breakdown of every dispatched request
type Recorder interface {
	RecordBreakdown(requestID string, b providers.Breakdown) error
}

// Request is one chat question
type Request struct {
	Question  string
	Lang      string
	RequestID string
}

// Service runs the chat pipeline: validate, fan out, record, aggregate,
// assemble.
type Service struct {
	dispatcher     Dispatcher
	aggregator     *aggregate.Aggregator
	recorder       Recorder
	perCallTimeout time.Duration
	logger         *zap.Logger
}

// NewService creates a chat service
func NewService(dispatcher Dispatcher, aggregator *aggregate.Aggregator, recorder Recorder, perCallTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		dispatcher:     dispatcher,
		aggregator:     aggregator,
		recorder:       recorder,
		perCallTimeout: perCallTimeout,
		logger:         logger,
	}
}

// Ask answers one question. A blank question fails validation before any
// provider is contacted; any other question is sent to providers verbatim.
// When every provider fails the error is a
// no_success domain error whose "responses" detail holds the breakdown.
func (s *Service) Ask(ctx context.Context, req Request) (*ResponsePayload, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, services.ErrQuestionRequired
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := s.logger.With(zap.String("request_id", requestID))

	start := time.Now()
	breakdown, err := s.dispatcher.FanOut(ctx, providers.Query{Text: req.Question, LanguageHint: req.Lang}, s.perCallTimeout)
	if err != nil {
		logger.Error("provider dispatch failed", zap.Error(err))
		return nil, err
	}

	if s.recorder != nil {
		if err := s.recorder.RecordBreakdown(requestID, breakdown); err != nil {
			logger.Warn("failed to queue request outcomes", zap.Error(err))
		}
	}

	unified, err := s.aggregator.Aggregate(breakdown)
	if err != nil {
		logger.Warn("no provider answered",
			zap.Int("providers", len(breakdown)),
			zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	logger.Info("chat answered",
		zap.String("lang", req.Lang),
		zap.Int("providers", len(breakdown)),
		zap.Strings("contributors", unified.Contributors),
		zap.Int("confidence", unified.Confidence),
		zap.Duration("elapsed", time.Since(start)))

	payload := Assemble(unified, breakdown)
	payload.RequestID = requestID
	return &payload, nil
}

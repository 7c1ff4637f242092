package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mindfusion/backend/models"
	"github.com/mindfusion/backend/repositories"
	"github.com/mindfusion/backend/services/providers"
)

// OutcomeEvent carries the per-provider records of one chat request
type OutcomeEvent struct {
	RequestID string
	Records   []*models.OutcomeRecord
}

// AuditService persists request outcomes asynchronously
type AuditService struct {
	outcomeRepo  repositories.OutcomeRepository
	logger       *zap.Logger
	eventChan    chan *OutcomeEvent
	workerCount  int
	bufferSize   int
	writeTimeout time.Duration
	wg           sync.WaitGroup
	started      bool
	stopped      bool
	mu           sync.RWMutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize   int // Size of the event buffer channel
	WorkerCount  int // Number of concurrent workers
	WriteTimeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:   1000,
		WorkerCount:  2,
		WriteTimeout: 5 * time.Second,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(outcomeRepo repositories.OutcomeRepository, logger *zap.Logger, config Config) *AuditService {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &AuditService{
		outcomeRepo:  outcomeRepo,
		logger:       logger,
		eventChan:    make(chan *OutcomeEvent, config.BufferSize),
		workerCount:  config.WorkerCount,
		bufferSize:   config.BufferSize,
		writeTimeout: config.WriteTimeout,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting events and waits for pending ones to be written
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// RecordBreakdown queues the outcome tags of one request. It never blocks:
// when the buffer is full the event is dropped and an error returned.
func (s *AuditService) RecordBreakdown(requestID string, b providers.Breakdown) error {
	return s.LogEvent(&OutcomeEvent{
		RequestID: requestID,
		Records:   RecordsFromBreakdown(requestID, b),
	})
}

// LogEvent queues an event (non-blocking)
func (s *AuditService) LogEvent(event *OutcomeEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return fmt.Errorf("audit service not running")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("request_id", event.RequestID))
		return fmt.Errorf("audit event buffer full")
	}
}

// RecordsFromBreakdown converts a breakdown into records sorted by provider
func RecordsFromBreakdown(requestID string, b providers.Breakdown) []*models.OutcomeRecord {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]*models.OutcomeRecord, 0, len(ids))
	for _, id := range ids {
		o := b[id]
		if o.IsSuccess() {
			records = append(records, models.NewSuccessRecord(requestID, id, o.Confidence, o.Latency))
		} else {
			records = append(records, models.NewFailureRecord(requestID, id, string(o.Reason), o.Latency))
		}
	}
	return records
}

func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to persist request outcomes",
				zap.Int("worker_id", id),
				zap.String("request_id", event.RequestID),
				zap.Error(err))
		}
	}
}

func (s *AuditService) processEvent(event *OutcomeEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	return s.outcomeRepo.InsertBatch(ctx, event.Records)
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// Noop discards every breakdown. Used when no database is configured.
type Noop struct{}

// RecordBreakdown does nothing
func (Noop) RecordBreakdown(string, providers.Breakdown) error { return nil }

package repositories

import (
	"context"

	"github.com/mindfusion/backend/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// OutcomeRepository stores per-provider outcome tags for chat requests
type OutcomeRepository interface {
	// InsertBatch stores all records of one request atomically
	InsertBatch(ctx context.Context, records []*models.OutcomeRecord) error

	// GetByRequestID retrieves the records of one request ordered by provider
	GetByRequestID(ctx context.Context, requestID string) ([]*models.OutcomeRecord, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Outcomes OutcomeRepository
}

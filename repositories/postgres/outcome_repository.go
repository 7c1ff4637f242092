package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mindfusion/backend/models"
	"github.com/mindfusion/backend/repositories"
)

// OutcomeRepository implements repositories.OutcomeRepository
type OutcomeRepository struct {
	db     *DB
	txMgr  repositories.TransactionManager
	logger *zap.Logger
}

// NewOutcomeRepository creates a new outcome repository
func NewOutcomeRepository(db *DB, logger *zap.Logger) *OutcomeRepository {
	return &OutcomeRepository{
		db:     db,
		txMgr:  NewTransactionManager(db, logger),
		logger: logger,
	}
}

const insertOutcomeQuery = `
	INSERT INTO request_outcomes (
		id, request_id, provider_id, status, reason, confidence, latency_ms, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8
	)
`

// InsertBatch stores all records of one request in a single transaction
func (r *OutcomeRepository) InsertBatch(ctx context.Context, records []*models.OutcomeRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := r.txMgr.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		executor := GetExecutor(ctx, r.db)
		for _, rec := range records {
			_, err := executor.ExecContext(ctx, insertOutcomeQuery,
				rec.ID,
				rec.RequestID,
				rec.ProviderID,
				rec.Status,
				rec.Reason,
				rec.Confidence,
				rec.LatencyMs,
				rec.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert outcome for %s: %w", rec.ProviderID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("request outcomes inserted",
		zap.String("request_id", records[0].RequestID),
		zap.Int("count", len(records)))
	return nil
}

// GetByRequestID retrieves the records of one request ordered by provider
func (r *OutcomeRepository) GetByRequestID(ctx context.Context, requestID string) ([]*models.OutcomeRecord, error) {
	query := `
		SELECT id, request_id, provider_id, status, reason, confidence, latency_ms, created_at
		FROM request_outcomes
		WHERE request_id = $1
		ORDER BY provider_id
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var records []*models.OutcomeRecord
	for rows.Next() {
		rec := &models.OutcomeRecord{}
		if err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.ProviderID,
			&rec.Status,
			&rec.Reason,
			&rec.Confidence,
			&rec.LatencyMs,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes: %w", err)
	}

	return records, nil
}

package storage

import (
	"context"

	"tx-forecast-lab/internal/domain"
)

// ExecutionStore holds the local history list of completed executions.
// Retention is bounded: implementations keep only the most recent records
// up to their cap, evicting oldest-first. Nothing survives the process;
// cross-session persistence is deliberately out of scope.
type ExecutionStore interface {
	// Insert records a completed execution, evicting the oldest record when
	// the retention cap is reached. Returns ErrInvalidInput on a record
	// without a destination address.
	Insert(ctx context.Context, rec *domain.ExecutionRecord) error

	// Recent returns up to limit records, most recent first. limit <= 0
	// returns everything retained.
	Recent(ctx context.Context, limit int) ([]domain.ExecutionRecord, error)

	// Clear removes all retained records (explicit user action).
	Clear(ctx context.Context) error
}

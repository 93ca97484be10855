package ports

import (
	"context"

	"anastat/domain/stats"
)

// ResultRepository persists completed analysis runs so callers can
// retrieve them later by run ID.
type ResultRepository interface {
	// Save stores a completed result. The result's RunID must be set.
	Save(ctx context.Context, result *stats.Result) error

	// Get retrieves a stored result by run ID.
	Get(ctx context.Context, runID string) (*stats.Result, error)

	// List returns the run IDs of the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]string, error)
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"anastat/domain/stats"
	"anastat/internal/errors"
	"anastat/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ResultRepositoryImpl implements ResultRepository for PostgreSQL
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) ports.ResultRepository {
	return &ResultRepositoryImpl{db: db}
}

// InitSchema creates the analysis_results table if it does not exist
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_results (
			run_id     TEXT PRIMARY KEY,
			seed       BIGINT NOT NULL,
			analyses   TEXT[] NOT NULL DEFAULT '{}',
			payload    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to create analysis_results table")
	}
	_, err = db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_analysis_results_created_at
		ON analysis_results (created_at DESC)
	`)
	return errors.Wrap(err, "failed to create analysis_results index")
}

// Save stores a completed analysis result keyed by its run ID
func (r *ResultRepositoryImpl) Save(ctx context.Context, result *stats.Result) error {
	if result == nil || result.RunID == "" {
		return errors.ValidationError("result must have a run id")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to encode analysis result")
	}

	// Upsert so re-saving a replayed run is idempotent
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_results (run_id, seed, analyses, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO UPDATE
		SET seed = EXCLUDED.seed, analyses = EXCLUDED.analyses, payload = EXCLUDED.payload
	`, result.RunID, result.Seed, analysesArray(result.Analyses.Names()), payload)
	if err != nil {
		return errors.Wrap(err, "failed to store analysis result")
	}
	return nil
}

// Get retrieves an analysis result by run ID
func (r *ResultRepositoryImpl) Get(ctx context.Context, runID string) (*stats.Result, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, `
		SELECT payload FROM analysis_results WHERE run_id = $1
	`, runID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("analysis result " + runID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis result")
	}

	var result stats.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode analysis result")
	}
	return &result, nil
}

// List returns run IDs of stored results, newest first
func (r *ResultRepositoryImpl) List(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT run_id FROM analysis_results ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var runIDs []string
	if err := r.db.SelectContext(ctx, &runIDs, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list analysis results")
	}
	return runIDs, nil
}

func analysesArray(analyses []string) interface{} {
	if analyses == nil {
		analyses = []string{}
	}
	return pq.Array(analyses)
}

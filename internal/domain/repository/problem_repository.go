package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"sqlgym/internal/common"
	"sqlgym/internal/domain/model"
)

// ProblemRepository is the read-only view of the problem catalog this
// subsystem consumes. Authoring lives elsewhere.
type ProblemRepository interface {
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
}

type PgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) *PgProblemRepository {
	return &PgProblemRepository{db: db}
}

func (r *PgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT id, slug, title, dataset_sql, tables_json, runtime_limit_ms, memory_limit_kb,
		expected_json, validation_json, created_at, updated_at
		FROM problems WHERE id = $1`
	p := &model.Problem{}
	var tablesJSON, expectedJSON, validationJSON string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Slug, &p.Title, &p.DatasetSQL, &tablesJSON, &p.RuntimeLimitMs, &p.MemoryLimitKb,
		&expectedJSON, &validationJSON, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.Errorf("failed to fetch problem %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(tablesJSON), &p.Tables); err != nil {
		return nil, common.Errorf("corrupt tables list for problem %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(expectedJSON), &p.Expected); err != nil {
		return nil, common.Errorf("corrupt expected output for problem %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(validationJSON), &p.Validation); err != nil {
		return nil, common.Errorf("corrupt validation config for problem %s: %w", id, err)
	}
	return p, nil
}

package model

import "time"

// Problem is the read-only catalog view this subsystem consumes: the dataset
// the learner's query runs against, the expected output, and the validation
// knobs. Authoring and publishing live in the catalog service.
type Problem struct {
	ID             string           `json:"id"`
	Slug           string           `json:"slug"`
	Title          string           `json:"title"`
	DatasetSQL     string           `json:"-"` // schema + seed script, applied to the sandbox
	Tables         []string         `json:"tables"`
	RuntimeLimitMs int              `json:"runtime_limit_ms"`
	MemoryLimitKb  int              `json:"memory_limit_kb"`
	Expected       ExpectedOutput   `json:"expected"`
	Validation     ValidationConfig `json:"validation"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ExpectedOutput carries either the full expected row set, or a precomputed
// hash plus row count when the set is too large to ship around.
type ExpectedOutput struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows,omitempty"`
	Hash     *string  `json:"hash,omitempty"`
	RowCount int      `json:"row_count"`
}

// ValidationConfig is per-problem: whether row order matters, how close
// floats must be, and whether column names compare case-sensitively.
type ValidationConfig struct {
	OrderSensitive       bool    `json:"order_sensitive"`
	FloatTolerance       float64 `json:"float_tolerance"`
	CaseSensitiveColumns bool    `json:"case_sensitive_columns"`
}

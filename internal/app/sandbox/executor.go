package sandbox

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"sqlgym/internal/common"

	_ "modernc.org/sqlite" // pure-Go SQLite, one ephemeral database per job
)

// ErrTimeout is returned when the query exceeds its hard deadline. The
// engine is interrupted, not merely signaled; the connection dies with the
// in-memory database.
var ErrTimeout = errors.New("query exceeded time limit")

// Result is what one sandboxed execution produced: the row set, timing, and
// the tables the query plan actually touched. TablesAccessed is execution
// metadata consumed by the anti-hardcode check.
type Result struct {
	Columns        []string
	Rows           [][]any
	RowsReturned   int
	Duration       time.Duration
	TablesAccessed []string
}

// Executor runs one untrusted SQL statement against an ephemeral,
// problem-scoped SQLite database under a timeout and a heap ceiling. The
// dataset is rebuilt per job; nothing survives the call.
type Executor struct {
	rowCap int
}

func NewExecutor(rowCap int) *Executor {
	if rowCap <= 0 {
		rowCap = 10000
	}
	return &Executor{rowCap: rowCap}
}

// Execute runs the query. keepAllRows bypasses the row cap for validations
// that must see the complete result set, such as hash comparison; capped
// executions keep counting rows past the cap but stop storing them.
func (e *Executor) Execute(ctx context.Context, datasetSQL, query string, timeout time.Duration, memoryLimitKb int, keepAllRows bool) (*Result, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, common.Errorf("failed to open sandbox database: %w", err)
	}
	defer db.Close()
	// One connection only: the in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, datasetSQL); err != nil {
		return nil, common.Errorf("failed to load problem dataset: %w", err)
	}
	if memoryLimitKb > 0 {
		limit := strconv.FormatInt(int64(memoryLimitKb)*1024, 10)
		if _, err := db.ExecContext(ctx, "PRAGMA soft_heap_limit = "+limit); err != nil {
			return nil, common.Errorf("failed to set memory ceiling: %w", err)
		}
	}
	// The dataset is loaded; from here the learner's SQL must not mutate it.
	if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, common.Errorf("failed to lock sandbox read-only: %w", err)
	}

	res := &Result{TablesAccessed: e.planTables(ctx, db, query)}

	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	rows, err := db.QueryContext(qctx, query)
	if err != nil {
		if qctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res.Columns = cols

	for rows.Next() {
		res.RowsReturned++
		if !keepAllRows && res.RowsReturned > e.rowCap {
			continue // keep counting, stop storing
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		if qctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// planTables asks SQLite which tables the query would read. EXPLAIN QUERY
// PLAN rows carry detail strings like "SCAN sales" or "SEARCH sales USING
// INDEX ...". A plan failure is not fatal here; the real query reports the
// real error.
func (e *Executor) planTables(ctx context.Context, db *sql.DB, query string) []string {
	rows, err := db.QueryContext(ctx, "EXPLAIN QUERY PLAN "+query)
	if err != nil {
		return nil
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var tables []string
	for rows.Next() {
		var id, parent, notused int
		var detail string
		if err := rows.Scan(&id, &parent, &notused, &detail); err != nil {
			return tables
		}
		for _, prefix := range []string{"SCAN ", "SEARCH "} {
			if idx := strings.Index(detail, prefix); idx >= 0 {
				rest := detail[idx+len(prefix):]
				name := rest
				if sp := strings.IndexByte(rest, ' '); sp >= 0 {
					name = rest[:sp]
				}
				name = strings.ToLower(name)
				if name != "" && !seen[name] {
					seen[name] = true
					tables = append(tables, name)
				}
			}
		}
	}
	return tables
}

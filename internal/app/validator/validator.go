package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"sqlgym/internal/app/sandbox"
	"sqlgym/internal/domain/model"
)

const (
	RuleColumnMismatch   = "column_mismatch"
	RuleRowCountMismatch = "row_count_mismatch"
	RuleValueMismatch    = "value_mismatch"
	RuleHashMismatch     = "hash_mismatch"
	RuleNoTableReference = "no_table_reference"
)

// Outcome is the validator's verdict on one execution: pass/fail plus which
// rule decided it.
type Outcome struct {
	Passed  bool
	Verdict model.Verdict
	Rule    string
	Detail  string
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate compares the sandbox output against the problem's expected
// output, then runs the anti-hardcode check on anything that matched. The
// check is structural: a query only gets flagged when neither its plan nor
// its text (literals and comments stripped) touches any declared table.
func (v *Validator) Validate(sqlText string, res *sandbox.Result, problem *model.Problem) Outcome {
	cfg := problem.Validation

	var matched bool
	var failure Outcome
	if problem.Expected.Hash != nil {
		matched, failure = v.compareByHash(res, problem.Expected, cfg)
	} else {
		matched, failure = v.compareByValue(res, problem.Expected, cfg)
	}
	if !matched {
		return failure
	}

	if !v.referencesTables(sqlText, res, problem.Tables) {
		return Outcome{
			Passed:  false,
			Verdict: model.VerdictSuspectedHardcode,
			Rule:    RuleNoTableReference,
			Detail:  "output matches expected but the query reads none of the problem's tables",
		}
	}

	return Outcome{Passed: true, Verdict: model.VerdictAccepted}
}

func (v *Validator) compareByValue(res *sandbox.Result, expected model.ExpectedOutput, cfg model.ValidationConfig) (bool, Outcome) {
	if !columnsEqual(res.Columns, expected.Columns, cfg.CaseSensitiveColumns) {
		return false, wrongAnswer(RuleColumnMismatch, fmt.Sprintf("expected columns %v, got %v", expected.Columns, res.Columns))
	}
	if len(res.Rows) != len(expected.Rows) {
		return false, wrongAnswer(RuleRowCountMismatch, fmt.Sprintf("expected %d rows, got %d", len(expected.Rows), len(res.Rows)))
	}

	if cfg.OrderSensitive {
		for i := range expected.Rows {
			if !rowsEqual(res.Rows[i], expected.Rows[i], cfg.FloatTolerance) {
				return false, wrongAnswer(RuleValueMismatch, fmt.Sprintf("row %d differs from expected", i+1))
			}
		}
		return true, Outcome{}
	}

	// Order-insensitive: match rows as a multiset.
	used := make([]bool, len(expected.Rows))
	for i, actual := range res.Rows {
		found := false
		for j, exp := range expected.Rows {
			if !used[j] && rowsEqual(actual, exp, cfg.FloatTolerance) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false, wrongAnswer(RuleValueMismatch, fmt.Sprintf("row %d has no match in expected output", i+1))
		}
	}
	return true, Outcome{}
}

func (v *Validator) compareByHash(res *sandbox.Result, expected model.ExpectedOutput, cfg model.ValidationConfig) (bool, Outcome) {
	if res.RowsReturned != expected.RowCount {
		return false, wrongAnswer(RuleRowCountMismatch, fmt.Sprintf("expected %d rows, got %d", expected.RowCount, res.RowsReturned))
	}
	got := HashRows(res.Columns, res.Rows, cfg)
	if got != *expected.Hash {
		return false, wrongAnswer(RuleHashMismatch, "result set hash differs from expected")
	}
	return true, Outcome{}
}

// HashRows computes the canonical sha256 digest of a result set under the
// given validation config. The catalog precomputes the same digest for large
// expected sets.
func HashRows(columns []string, rows [][]any, cfg model.ValidationConfig) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, canonicalColumns(columns, cfg.CaseSensitiveColumns))
	body := make([]string, 0, len(rows))
	for _, row := range rows {
		body = append(body, canonicalRow(row, cfg.FloatTolerance))
	}
	if !cfg.OrderSensitive {
		sort.Strings(body)
	}
	lines = append(lines, body...)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

func (v *Validator) referencesTables(sqlText string, res *sandbox.Result, tables []string) bool {
	if len(tables) == 0 {
		return true // nothing declared, nothing to check against
	}
	declared := make(map[string]bool, len(tables))
	for _, t := range tables {
		declared[strings.ToLower(t)] = true
	}
	// Primary signal: the query plan scanned or searched a declared table.
	for _, t := range res.TablesAccessed {
		if declared[strings.ToLower(t)] {
			return true
		}
	}
	// Fallback signal: a declared table name appears as an identifier token
	// in the SQL text, outside literals and comments.
	for _, tok := range identifierTokens(sqlText) {
		if declared[tok] {
			return true
		}
	}
	return false
}

func wrongAnswer(rule, detail string) Outcome {
	return Outcome{Passed: false, Verdict: model.VerdictWrongAnswer, Rule: rule, Detail: detail}
}

func columnsEqual(actual, expected []string, caseSensitive bool) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		a, e := actual[i], expected[i]
		if !caseSensitive {
			a, e = strings.ToLower(a), strings.ToLower(e)
		}
		if a != e {
			return false
		}
	}
	return true
}

func rowsEqual(actual, expected []any, tolerance float64) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if !cellsEqual(actual[i], expected[i], tolerance) {
			return false
		}
	}
	return true
}

// cellsEqual compares one cell. Numbers compare numerically across types:
// SQLite hands back int64 where JSON expected values decode as float64.
func cellsEqual(a, b any, tolerance float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		if tolerance > 0 {
			return math.Abs(af-bf) <= tolerance
		}
		return af == bf
	}
	if aNum != bNum {
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func canonicalColumns(columns []string, caseSensitive bool) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		if caseSensitive {
			cols[i] = c
		} else {
			cols[i] = strings.ToLower(c)
		}
	}
	return strings.Join(cols, "\x1f")
}

func canonicalRow(row []any, tolerance float64) string {
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = canonicalCell(v, tolerance)
	}
	return strings.Join(cells, "\x1f")
}

func canonicalCell(v any, tolerance float64) string {
	if v == nil {
		return "\x00"
	}
	if f, ok := toFloat(v); ok {
		if tolerance > 0 {
			// Snap to the tolerance grid so near-equal floats hash alike.
			f = math.Round(f/tolerance) * tolerance
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

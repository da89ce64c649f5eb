package validator

import (
	"strings"
	"testing"

	"sqlgym/internal/app/sandbox"
	"sqlgym/internal/domain/model"
)

func topThreeProblem(orderSensitive bool) *model.Problem {
	return &model.Problem{
		ID:     "p-top3",
		Slug:   "top-3-by-revenue",
		Tables: []string{"sales"},
		Expected: model.ExpectedOutput{
			Columns:  []string{"id", "rev"},
			Rows:     [][]any{{1, 100}, {2, 90}, {3, 80}},
			RowCount: 3,
		},
		Validation: model.ValidationConfig{OrderSensitive: orderSensitive},
	}
}

func saleResult(rows [][]any, tables ...string) *sandbox.Result {
	return &sandbox.Result{
		Columns:        []string{"id", "rev"},
		Rows:           rows,
		RowsReturned:   len(rows),
		TablesAccessed: tables,
	}
}

func TestValidateAcceptsDerivedAnswer(t *testing.T) {
	v := New()
	sql := "SELECT id, rev FROM sales ORDER BY rev DESC LIMIT 3"
	res := saleResult([][]any{{int64(1), int64(100)}, {int64(2), int64(90)}, {int64(3), int64(80)}}, "sales")

	out := v.Validate(sql, res, topThreeProblem(true))
	if !out.Passed || out.Verdict != model.VerdictAccepted {
		t.Fatalf("expected accepted, got %+v", out)
	}
}

func TestValidateFlagsHardcodedAnswer(t *testing.T) {
	v := New()
	sql := "SELECT 1 AS id, 100 AS rev UNION SELECT 2,90 UNION SELECT 3,80"
	// The output matches, but no table was scanned and none appears in the text.
	res := saleResult([][]any{{int64(1), int64(100)}, {int64(2), int64(90)}, {int64(3), int64(80)}})

	out := v.Validate(sql, res, topThreeProblem(false))
	if out.Passed {
		t.Fatalf("expected fail, got pass")
	}
	if out.Verdict != model.VerdictSuspectedHardcode {
		t.Fatalf("expected suspected_hardcode, got %s", out.Verdict)
	}
	if out.Rule != RuleNoTableReference {
		t.Fatalf("expected rule %s, got %s", RuleNoTableReference, out.Rule)
	}
}

func TestValidateHardcodeFlaggedWhenTableNameOnlyInComment(t *testing.T) {
	v := New()
	// "sales" appears only inside a string literal; the structural check must
	// not be fooled by it.
	sql := "SELECT 1 AS id, 100 AS rev UNION SELECT 2,90 UNION SELECT 3,80 -- 'from sales'"
	res := saleResult([][]any{{int64(1), int64(100)}, {int64(2), int64(90)}, {int64(3), int64(80)}})

	out := v.Validate(sql, res, topThreeProblem(false))
	if out.Verdict != model.VerdictSuspectedHardcode {
		t.Fatalf("expected suspected_hardcode, got %s", out.Verdict)
	}
}

func TestValidateOrderSensitivity(t *testing.T) {
	v := New()
	sql := "SELECT id, rev FROM sales ORDER BY rev LIMIT 3"
	reversed := saleResult([][]any{{int64(3), int64(80)}, {int64(2), int64(90)}, {int64(1), int64(100)}}, "sales")

	out := v.Validate(sql, reversed, topThreeProblem(true))
	if out.Passed {
		t.Fatal("order-sensitive problem should reject reordered rows")
	}
	if out.Verdict != model.VerdictWrongAnswer || out.Rule != RuleValueMismatch {
		t.Fatalf("expected wrong_answer/value_mismatch, got %+v", out)
	}

	out = v.Validate(sql, reversed, topThreeProblem(false))
	if !out.Passed {
		t.Fatalf("order-insensitive problem should accept reordered rows, got %+v", out)
	}
}

func TestValidateRowCountMismatch(t *testing.T) {
	v := New()
	res := saleResult([][]any{{int64(1), int64(100)}}, "sales")
	out := v.Validate("SELECT id, rev FROM sales LIMIT 1", res, topThreeProblem(true))
	if out.Passed || out.Rule != RuleRowCountMismatch {
		t.Fatalf("expected row_count_mismatch, got %+v", out)
	}
}

func TestValidateColumnCase(t *testing.T) {
	v := New()
	res := &sandbox.Result{
		Columns:        []string{"ID", "REV"},
		Rows:           [][]any{{int64(1), int64(100)}, {int64(2), int64(90)}, {int64(3), int64(80)}},
		RowsReturned:   3,
		TablesAccessed: []string{"sales"},
	}

	problem := topThreeProblem(true)
	out := v.Validate("SELECT id AS ID, rev AS REV FROM sales ORDER BY rev DESC LIMIT 3", res, problem)
	if !out.Passed {
		t.Fatalf("case-insensitive columns should match, got %+v", out)
	}

	problem.Validation.CaseSensitiveColumns = true
	out = v.Validate("SELECT id AS ID, rev AS REV FROM sales ORDER BY rev DESC LIMIT 3", res, problem)
	if out.Passed || out.Rule != RuleColumnMismatch {
		t.Fatalf("case-sensitive columns should mismatch, got %+v", out)
	}
}

func TestValidateFloatTolerance(t *testing.T) {
	v := New()
	problem := &model.Problem{
		Tables: []string{"metrics"},
		Expected: model.ExpectedOutput{
			Columns: []string{"avg"},
			Rows:    [][]any{{3.3333}},
		},
		Validation: model.ValidationConfig{OrderSensitive: true, FloatTolerance: 0.001},
	}
	res := &sandbox.Result{
		Columns:        []string{"avg"},
		Rows:           [][]any{{3.33333333}},
		RowsReturned:   1,
		TablesAccessed: []string{"metrics"},
	}
	out := v.Validate("SELECT AVG(x) AS avg FROM metrics", res, problem)
	if !out.Passed {
		t.Fatalf("within tolerance should pass, got %+v", out)
	}

	problem.Validation.FloatTolerance = 0
	out = v.Validate("SELECT AVG(x) AS avg FROM metrics", res, problem)
	if out.Passed {
		t.Fatal("exact comparison should fail on differing floats")
	}
}

func TestValidateByHash(t *testing.T) {
	v := New()
	cfg := model.ValidationConfig{OrderSensitive: false}
	rows := [][]any{{int64(2), int64(90)}, {int64(1), int64(100)}}
	hash := HashRows([]string{"id", "rev"}, [][]any{{1, 100}, {2, 90}}, cfg)

	problem := &model.Problem{
		Tables: []string{"sales"},
		Expected: model.ExpectedOutput{
			Columns:  []string{"id", "rev"},
			Hash:     &hash,
			RowCount: 2,
		},
		Validation: cfg,
	}
	res := &sandbox.Result{
		Columns:        []string{"id", "rev"},
		Rows:           rows,
		RowsReturned:   2,
		TablesAccessed: []string{"sales"},
	}
	out := v.Validate("SELECT id, rev FROM sales", res, problem)
	if !out.Passed {
		t.Fatalf("hash of equivalent set should match, got %+v", out)
	}

	res.Rows[0][1] = int64(91)
	out = v.Validate("SELECT id, rev FROM sales", res, problem)
	if out.Passed || out.Rule != RuleHashMismatch {
		t.Fatalf("expected hash_mismatch, got %+v", out)
	}
}

func TestIdentifierTokens(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string // token that must be present
		skip string // token that must be absent
	}{
		{"plain reference", "SELECT * FROM sales", "sales", ""},
		{"inside string literal", "SELECT 'from sales'", "", "sales"},
		{"inside line comment", "SELECT 1 -- sales", "", "sales"},
		{"inside block comment", "SELECT 1 /* sales */", "", "sales"},
		{"mixed case", "select * from SALES", "sales", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := identifierTokens(tt.sql)
			got := strings.Join(tokens, " ")
			if tt.want != "" && !contains(tokens, tt.want) {
				t.Fatalf("expected token %q in %q", tt.want, got)
			}
			if tt.skip != "" && contains(tokens, tt.skip) {
				t.Fatalf("unexpected token %q in %q", tt.skip, got)
			}
		})
	}
}

func contains(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}

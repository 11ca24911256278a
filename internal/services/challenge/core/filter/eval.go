package filter

import (
	"fmt"

	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Row exposes one challenge to in-memory filtering. Text serves string fields
// and Amount serves integer fields; ok is false when the row lacks the field.
type Row interface {
	Text(field string) (string, bool)
	Amount(field string) (uint64, bool)
}

// Evaluate reports whether row matches a parsed filter. It accepts the same
// fields and operators as ToSQL, so memory and SQLite listings agree. A nil
// expression matches every row.
func Evaluate(e *expr.Expr, row Row) (bool, error) {
	if e == nil {
		return true, nil
	}
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return false, fmt.Errorf("unsupported expression type: %T", e.ExprKind)
	}
	fn := call.CallExpr.Function
	args := call.CallExpr.Args

	if op, ok := junctions[fn]; ok {
		if len(args) != 2 {
			return false, fmt.Errorf("%s requires 2 arguments", op)
		}
		left, err := Evaluate(args[0], row)
		if err != nil {
			return false, err
		}
		// Short-circuit like SQL would.
		if (op == "AND" && !left) || (op == "OR" && left) {
			return left, nil
		}
		return Evaluate(args[1], row)
	}

	op, ok := comparisons[fn]
	if !ok {
		return false, fmt.Errorf("unsupported function: %s", fn)
	}
	if len(args) != 2 {
		return false, fmt.Errorf("comparison requires 2 arguments")
	}
	field, err := extractFieldName(args[0])
	if err != nil {
		return false, err
	}
	col, ok := challengeColumns[field]
	if !ok {
		return false, fmt.Errorf("unknown field: %s", field)
	}
	value, err := extractValue(args[1])
	if err != nil {
		return false, err
	}

	var cmp int
	switch col.kind {
	case FieldString:
		cmp, err = compareText(row, field, value)
	case FieldInt:
		cmp, err = compareAmount(row, field, value)
	default:
		err = fmt.Errorf("unsupported field type for %s", field)
	}
	if err != nil {
		return false, err
	}
	return holds(op, cmp), nil
}

func compareText(row Row, field string, value any) (int, error) {
	want, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("%s expects a string, got %T", field, value)
	}
	got, ok := row.Text(field)
	if !ok {
		return 0, fmt.Errorf("row has no text field %s", field)
	}
	switch {
	case got < want:
		return -1, nil
	case got > want:
		return 1, nil
	default:
		return 0, nil
	}
}

// compareAmount compares integers exactly; amounts above 2^53 must not lose
// precision the way a float comparison would.
func compareAmount(row Row, field string, value any) (int, error) {
	got, ok := row.Amount(field)
	if !ok {
		return 0, fmt.Errorf("row has no amount field %s", field)
	}
	var want uint64
	switch v := value.(type) {
	case int64:
		if v < 0 {
			return 1, nil
		}
		want = uint64(v)
	case uint64:
		want = v
	default:
		return 0, fmt.Errorf("%s expects an integer, got %T", field, value)
	}
	switch {
	case got < want:
		return -1, nil
	case got > want:
		return 1, nil
	default:
		return 0, nil
	}
}

func holds(op string, cmp int) bool {
	switch op {
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	default:
		return cmp >= 0
	}
}

// Package filter provides AIP-160 filter expression parsing for challenge
// listings, with SQL translation and in-memory evaluation.
package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// FieldType describes a supported filter field type.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
)

// Field names accepted by challenge filters.
const (
	FieldID          = "id"
	FieldDescription = "description"
	FieldChallenger  = "challenger"
	FieldContender   = "contender"
	FieldOwner       = "owner"
	FieldPhase       = "phase"
	FieldStatus      = "status"
	FieldFlushedTo   = "flushed_to"
	FieldBalance     = "balance"
	FieldDeposits    = "deposits"
	FieldPayouts     = "payouts"
	FieldReward      = "reward"
	FieldDays        = "days"
)

// column is the SQL expression backing a field. Status depends on the
// evaluation time, so its expression takes the current time in unix millis.
type column struct {
	kind   FieldType
	clause string
	now    bool
}

var challengeColumns = map[string]column{
	FieldID:          {kind: FieldString, clause: "id"},
	FieldDescription: {kind: FieldString, clause: "description"},
	FieldChallenger:  {kind: FieldString, clause: "challenger"},
	FieldContender:   {kind: FieldString, clause: "contender"},
	FieldOwner:       {kind: FieldString, clause: "owner"},
	FieldPhase:       {kind: FieldString, clause: "phase"},
	FieldFlushedTo:   {kind: FieldString, clause: "flushed_to"},
	FieldBalance:     {kind: FieldInt, clause: "(deposits - payouts)"},
	FieldDeposits:    {kind: FieldInt, clause: "deposits"},
	FieldPayouts:     {kind: FieldInt, clause: "payouts"},
	FieldReward:      {kind: FieldInt, clause: "reward"},
	FieldDays:        {kind: FieldInt, clause: "days"},
	FieldStatus: {
		kind: FieldString,
		clause: "(CASE WHEN phase = 'finished' THEN 'finished' " +
			"WHEN deadline < ? AND phase NOT IN ('completed_unaccepted', 'completed') THEN 'expired' " +
			"ELSE 'active' END)",
		now: true,
	},
}

// ChallengeFields returns the filterable challenge fields and their types.
func ChallengeFields() map[string]FieldType {
	fields := make(map[string]FieldType, len(challengeColumns))
	for name, col := range challengeColumns {
		fields[name] = col.kind
	}
	return fields
}

// ChallengeDeclarations returns the field declarations for challenge filtering.
func ChallengeDeclarations() (*filtering.Declarations, error) {
	names := make([]string, 0, len(challengeColumns))
	for name := range challengeColumns {
		names = append(names, name)
	}
	sort.Strings(names)

	decls := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for _, name := range names {
		switch challengeColumns[name].kind {
		case FieldString:
			decls = append(decls, filtering.DeclareIdent(name, filtering.TypeString))
		case FieldInt:
			decls = append(decls, filtering.DeclareIdent(name, filtering.TypeInt))
		default:
			return nil, fmt.Errorf("unsupported field type for %s", name)
		}
	}
	return filtering.NewDeclarations(decls...)
}

// Parse parses an AIP-160 filter expression against the challenge fields.
// Returns nil for an empty filter string.
func Parse(filterStr string) (*expr.Expr, error) {
	if strings.TrimSpace(filterStr) == "" {
		return nil, nil
	}

	decls, err := ChallengeDeclarations()
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}

	filter, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	return filter.CheckedExpr.Expr, nil
}

// SQLCondition represents a SQL WHERE clause fragment with parameters.
type SQLCondition struct {
	// Clause is the SQL WHERE clause (e.g., "phase = ?").
	Clause string
	// Params are the positional parameters for the clause.
	Params []any
}

// ParseChallengeFilter parses an AIP-160 filter expression and returns a SQL
// condition over the challenges table. Returns an empty condition for an
// empty filter string.
func ParseChallengeFilter(filterStr string, now time.Time) (SQLCondition, error) {
	parsed, err := Parse(filterStr)
	if err != nil {
		return SQLCondition{}, err
	}
	return ToSQL(parsed, now)
}

// ToSQL translates a parsed filter into a SQL condition.
func ToSQL(e *expr.Expr, now time.Time) (SQLCondition, error) {
	t := translator{nowMillis: now.UTC().UnixMilli()}
	return t.translateExpr(e)
}

type translator struct {
	nowMillis int64
}

func (t translator) translateExpr(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return t.translateCall(kind.CallExpr)
	default:
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

// junctions and comparisons map parsed function names to SQL operators.
var (
	junctions = map[string]string{
		"_&&_": "AND", "AND": "AND",
		"_||_": "OR", "OR": "OR",
	}
	comparisons = map[string]string{
		"_==_": "=", "=": "=",
		"_!=_": "!=", "!=": "!=",
		"_<_": "<", "<": "<",
		"_<=_": "<=", "<=": "<=",
		"_>_": ">", ">": ">",
		"_>=_": ">=", ">=": ">=",
	}
)

func (t translator) translateCall(call *expr.Expr_Call) (SQLCondition, error) {
	if op, ok := junctions[call.Function]; ok {
		return t.translateJoin(call.Args, op)
	}
	if op, ok := comparisons[call.Function]; ok {
		return t.translateComparison(call.Args, op)
	}
	return SQLCondition{}, fmt.Errorf("unsupported function: %s", call.Function)
}

func (t translator) translateJoin(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("%s requires 2 arguments", op)
	}

	left, err := t.translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}

	right, err := t.translateExpr(args[1])
	if err != nil {
		return SQLCondition{}, err
	}

	return SQLCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: append(left.Params, right.Params...),
	}, nil
}

func (t translator) translateComparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return SQLCondition{}, err
	}

	col, ok := challengeColumns[field]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %s", field)
	}

	value, err := extractValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}

	var params []any
	if col.now {
		params = append(params, t.nowMillis)
	}
	params = append(params, value)

	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", col.clause, op),
		Params: params,
	}, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	default:
		return nil, fmt.Errorf("expected constant, got %T", kind)
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}

	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

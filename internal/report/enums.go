package report

import "strings"

// Operator is a filter comparison operator.
type Operator string

const (
	OpEq        Operator = "eq"
	OpNeq       Operator = "neq"
	OpGt        Operator = "gt"
	OpGte       Operator = "gte"
	OpLt        Operator = "lt"
	OpLte       Operator = "lte"
	OpLike      Operator = "like"
	OpIn        Operator = "in"
	OpBetween   Operator = "between"
	OpIsNull    Operator = "is_null"
	OpIsNotNull Operator = "is_not_null"
)

var validOps = map[Operator]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpLike: true, OpIn: true, OpBetween: true, OpIsNull: true, OpIsNotNull: true,
}

// ParseOperator returns the operator named s.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(s)
	return op, validOps[op]
}

// Arity describes which value slot an operator consumes.
type Arity int

const (
	ArityNone   Arity = iota // is_null, is_not_null
	ArityScalar              // value
	ArityList                // values
)

// Arity returns the value shape the operator requires.
func (op Operator) Arity() Arity {
	switch op {
	case OpIsNull, OpIsNotNull:
		return ArityNone
	case OpIn, OpBetween:
		return ArityList
	default:
		return ArityScalar
	}
}

// Aggregation is an aggregate function applied to a selected field.
type Aggregation string

const (
	AggNone          Aggregation = ""
	AggCount         Aggregation = "count"
	AggSum           Aggregation = "sum"
	AggAvg           Aggregation = "avg"
	AggMin           Aggregation = "min"
	AggMax           Aggregation = "max"
	AggCountDistinct Aggregation = "count_distinct"
)

var validAggs = map[Aggregation]bool{
	AggCount: true, AggSum: true, AggAvg: true, AggMin: true, AggMax: true, AggCountDistinct: true,
}

// ParseAggregation returns the aggregation named s. The empty string is AggNone.
func ParseAggregation(s string) (Aggregation, bool) {
	if s == "" {
		return AggNone, true
	}
	agg := Aggregation(s)
	return agg, validAggs[agg]
}

// NeedsNumeric reports whether the aggregation only makes sense over numbers.
func (a Aggregation) NeedsNumeric() bool {
	return a == AggSum || a == AggAvg
}

// JoinType is the kind of join between the base table and a joined table.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
)

// ParseJoinType returns the join type named s.
func ParseJoinType(s string) (JoinType, bool) {
	switch jt := JoinType(strings.ToLower(s)); jt {
	case JoinInner, JoinLeft:
		return jt, true
	}
	return "", false
}

// JoinOperator compares the two sides of a join condition.
type JoinOperator string

const (
	JoinEq  JoinOperator = "="
	JoinNeq JoinOperator = "<>"
	JoinLt  JoinOperator = "<"
	JoinLte JoinOperator = "<="
	JoinGt  JoinOperator = ">"
	JoinGte JoinOperator = ">="
)

// ParseJoinOperator returns the join operator for s; "" defaults to "=".
func ParseJoinOperator(s string) (JoinOperator, bool) {
	switch s {
	case "", "=":
		return JoinEq, true
	case "<>", "!=":
		return JoinNeq, true
	case "<":
		return JoinLt, true
	case "<=":
		return JoinLte, true
	case ">":
		return JoinGt, true
	case ">=":
		return JoinGte, true
	}
	return "", false
}

// LogicalOperator combines a predicate with everything to its left.
type LogicalOperator string

const (
	LogicAnd LogicalOperator = "AND"
	LogicOr  LogicalOperator = "OR"
)

// ParseLogicalOperator returns the logical operator for s; "" defaults to AND.
func ParseLogicalOperator(s string) (LogicalOperator, bool) {
	switch strings.ToUpper(s) {
	case "", "AND":
		return LogicAnd, true
	case "OR":
		return LogicOr, true
	}
	return "", false
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection returns the direction for s; "" defaults to asc.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "", "asc":
		return Asc, true
	case "desc":
		return Desc, true
	}
	return "", false
}

// NullsOrder places NULLs before or after other values.
type NullsOrder string

const (
	NullsDefault NullsOrder = ""
	NullsFirst   NullsOrder = "first"
	NullsLast    NullsOrder = "last"
)

// ParseNullsOrder returns the nulls ordering for s; "" leaves the database default.
func ParseNullsOrder(s string) (NullsOrder, bool) {
	switch strings.ToLower(s) {
	case "":
		return NullsDefault, true
	case "first":
		return NullsFirst, true
	case "last":
		return NullsLast, true
	}
	return "", false
}

package report

import "github.com/atlekbai/report_executor/internal/catalog"

// Plan is a validated report: every identifier has been resolved through the
// catalog and every literal sits in an Args slice for binding. It keeps no
// reference to the request it was built from.
type Plan struct {
	Source  *catalog.DataSource
	Select  []SelectItem
	Joins   []JoinClause
	Where   []Predicate // folded left to right
	GroupBy []ColumnRef
	Having  []Predicate // folded left to right, over aggregates
	OrderBy []OrderTerm
	Limit   int
	Offset  int
}

// Columns returns the output column names in select order.
func (p *Plan) Columns() []string {
	cols := make([]string, len(p.Select))
	for i, s := range p.Select {
		cols[i] = s.Alias
	}
	return cols
}

// ColumnRef is a catalog-derived (table, column) pair.
type ColumnRef struct {
	Table  string
	Column string
}

// SelectItem is one output column.
type SelectItem struct {
	FieldID string
	Column  ColumnRef
	Agg     Aggregation
	Alias   string
}

// JoinClause joins Table to the query on Left <Op> Right. A non-empty
// TenantColumn restricts the joined rows to the compiler's tenant.
type JoinClause struct {
	Type         JoinType
	Schema       string
	Table        string
	TenantColumn string
	Left         ColumnRef
	Op           JoinOperator
	Right        ColumnRef
}

// Predicate is a single comparison. Logic combines it with the predicates to
// its left; it is ignored for the first predicate.
type Predicate struct {
	Column ColumnRef
	Agg    Aggregation // HAVING only
	Op     Operator
	Args   []any
	Logic  LogicalOperator
}

// OrderTerm is one ORDER BY entry.
type OrderTerm struct {
	Column ColumnRef
	Agg    Aggregation // set when sorting on an aggregated output
	Dir    Direction
	Nulls  NullsOrder
}

package report

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/report_executor/internal/ident"
)

// Compiler turns a validated Plan into a parameterized SQL template. The only
// identifiers it emits come from the plan, which takes them from the catalog;
// every literal becomes a placeholder.
type Compiler struct {
	placeholder sq.PlaceholderFormat
	tenantID    string
}

// NewCompiler returns a compiler emitting placeholders in the given format
// (sq.Dollar when nil). tenantID scopes data sources that declare a tenant
// column.
func NewCompiler(placeholder sq.PlaceholderFormat, tenantID string) *Compiler {
	if placeholder == nil {
		placeholder = sq.Dollar
	}
	return &Compiler{placeholder: placeholder, tenantID: tenantID}
}

// Compile returns the SQL template and its ordered parameters.
func (c *Compiler) Compile(plan *Plan) (string, []any, error) {
	if plan == nil || plan.Source == nil {
		return "", nil, compileError("nil plan")
	}
	if len(plan.Select) == 0 {
		return "", nil, compileError("plan selects no columns")
	}

	columns := make([]string, 0, len(plan.Select))
	for _, s := range plan.Select {
		expr, err := aggregateExpr(s.Agg, columnSQL(s.Column))
		if err != nil {
			return "", nil, err
		}
		columns = append(columns, fmt.Sprintf("%s AS %s", expr, ident.Quote(s.Alias)))
	}

	qb := sq.Select(columns...).
		From(plan.Source.TableName()).
		PlaceholderFormat(c.placeholder)

	var err error
	if qb, err = c.applyJoins(qb, plan.Joins); err != nil {
		return "", nil, err
	}
	if qb, err = c.applyWhere(qb, plan); err != nil {
		return "", nil, err
	}

	if len(plan.GroupBy) > 0 {
		groups := make([]string, len(plan.GroupBy))
		for i, g := range plan.GroupBy {
			groups[i] = columnSQL(g)
		}
		qb = qb.GroupBy(groups...)
	}

	if len(plan.Having) > 0 {
		having, args, err := fold(plan.Having, true)
		if err != nil {
			return "", nil, err
		}
		qb = qb.Having(having, args...)
	}

	for _, t := range plan.OrderBy {
		clause, err := orderSQL(t)
		if err != nil {
			return "", nil, err
		}
		qb = qb.OrderBy(clause)
	}

	qb = qb.Suffix("LIMIT ? OFFSET ?", plan.Limit, plan.Offset)

	sqlStr, args, err := qb.ToSql()
	if err != nil {
		return "", nil, compileError("build query: %v", err)
	}
	return sqlStr, args, nil
}

func compileError(format string, args ...any) *Error {
	return newError(KindCompile, format, args...)
}

func columnSQL(ref ColumnRef) string {
	return ident.QuoteQualified(ref.Table, ref.Column)
}

func aggregateExpr(agg Aggregation, col string) (string, error) {
	switch agg {
	case AggNone:
		return col, nil
	case AggCount:
		return "COUNT(" + col + ")", nil
	case AggCountDistinct:
		return "COUNT(DISTINCT " + col + ")", nil
	case AggSum:
		return "SUM(" + col + ")", nil
	case AggAvg:
		return "AVG(" + col + ")", nil
	case AggMin:
		return "MIN(" + col + ")", nil
	case AggMax:
		return "MAX(" + col + ")", nil
	}
	return "", compileError("unknown aggregation %q", agg)
}

// applyJoins renders each join. A tenant-scoped joined table gets its tenant
// predicate inside ON so a LEFT JOIN cannot pull rows of other organizations.
func (c *Compiler) applyJoins(qb sq.SelectBuilder, joins []JoinClause) (sq.SelectBuilder, error) {
	for _, j := range joins {
		switch j.Op {
		case JoinEq, JoinNeq, JoinLt, JoinLte, JoinGt, JoinGte:
		default:
			return qb, compileError("unknown join operator %q", j.Op)
		}
		on := fmt.Sprintf("%s ON %s %s %s",
			ident.QuoteQualified(j.Schema, j.Table), columnSQL(j.Left), j.Op, columnSQL(j.Right))

		var args []any
		if j.TenantColumn != "" {
			if c.tenantID == "" {
				return qb, newError(KindMissingTenant, "Data source %s requires an organization", j.Table)
			}
			on += " AND " + columnSQL(ColumnRef{Table: j.Table, Column: j.TenantColumn}) + " = ?"
			args = append(args, c.tenantID)
		}

		switch j.Type {
		case JoinInner:
			qb = qb.InnerJoin(on, args...)
		case JoinLeft:
			qb = qb.LeftJoin(on, args...)
		default:
			return qb, compileError("unknown join type %q", j.Type)
		}
	}
	return qb, nil
}

// applyWhere adds the tenant scope and the folded filters. The user fold is
// parenthesized when a tenant predicate precedes it so an OR inside the fold
// cannot escape the scope.
func (c *Compiler) applyWhere(qb sq.SelectBuilder, plan *Plan) (sq.SelectBuilder, error) {
	where, args, err := fold(plan.Where, false)
	if err != nil {
		return qb, err
	}

	if tc := plan.Source.TenantColumn; tc != "" {
		if c.tenantID == "" {
			return qb, newError(KindMissingTenant, "Data source %s requires an organization", plan.Source.ID)
		}
		tenantCol := columnSQL(ColumnRef{Table: plan.Source.BaseTable, Column: tc})
		qb = qb.Where(tenantCol+" = ?", c.tenantID)
		if where != "" {
			qb = qb.Where("("+where+")", args...)
		}
		return qb, nil
	}

	if where != "" {
		qb = qb.Where(where, args...)
	}
	return qb, nil
}

// fold combines predicates strictly left to right: each predicate joins the
// accumulated expression with its own logical operator. An AND that follows an
// OR wraps the accumulator so SQL precedence cannot regroup it.
func fold(preds []Predicate, having bool) (string, []any, error) {
	var (
		b     strings.Builder
		args  []any
		hasOr bool
	)
	for i, p := range preds {
		target := columnSQL(p.Column)
		if having {
			agg := p.Agg
			if agg == AggNone {
				agg = AggCount
			}
			var err error
			if target, err = aggregateExpr(agg, target); err != nil {
				return "", nil, err
			}
		}

		pred, pargs, err := predicateSQL(target, p)
		if err != nil {
			return "", nil, err
		}

		if i > 0 {
			switch p.Logic {
			case LogicAnd:
				if hasOr {
					acc := b.String()
					b.Reset()
					b.WriteString("(" + acc + ")")
					hasOr = false
				}
				b.WriteString(" AND ")
			case LogicOr:
				b.WriteString(" OR ")
				hasOr = true
			default:
				return "", nil, compileError("unknown logical operator %q", p.Logic)
			}
		}
		b.WriteString(pred)
		args = append(args, pargs...)
	}
	return b.String(), args, nil
}

func predicateSQL(target string, p Predicate) (string, []any, error) {
	want := 1
	switch p.Op.Arity() {
	case ArityNone:
		want = 0
	case ArityList:
		want = len(p.Args)
		if want == 0 || (p.Op == OpBetween && want != 2) {
			return "", nil, compileError("operator %s: bad value count %d", p.Op, want)
		}
	}
	if len(p.Args) != want {
		return "", nil, compileError("operator %s: expected %d values, got %d", p.Op, want, len(p.Args))
	}

	switch p.Op {
	case OpEq:
		return target + " = ?", p.Args, nil
	case OpNeq:
		return target + " <> ?", p.Args, nil
	case OpGt:
		return target + " > ?", p.Args, nil
	case OpGte:
		return target + " >= ?", p.Args, nil
	case OpLt:
		return target + " < ?", p.Args, nil
	case OpLte:
		return target + " <= ?", p.Args, nil
	case OpLike:
		return target + " LIKE ?", p.Args, nil
	case OpIn:
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(p.Args)), ", ")
		return target + " IN (" + marks + ")", p.Args, nil
	case OpBetween:
		return target + " BETWEEN ? AND ?", p.Args, nil
	case OpIsNull:
		return target + " IS NULL", nil, nil
	case OpIsNotNull:
		return target + " IS NOT NULL", nil, nil
	}
	return "", nil, compileError("unknown operator %q", p.Op)
}

func orderSQL(t OrderTerm) (string, error) {
	expr, err := aggregateExpr(t.Agg, columnSQL(t.Column))
	if err != nil {
		return "", err
	}

	switch t.Dir {
	case Asc:
		expr += " ASC"
	case Desc:
		expr += " DESC"
	default:
		return "", compileError("unknown sort direction %q", t.Dir)
	}

	switch t.Nulls {
	case NullsDefault:
	case NullsFirst:
		expr += " NULLS FIRST"
	case NullsLast:
		expr += " NULLS LAST"
	default:
		return "", compileError("unknown nulls ordering %q", t.Nulls)
	}
	return expr, nil
}

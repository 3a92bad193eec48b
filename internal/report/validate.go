package report

import (
	"strings"

	"github.com/atlekbai/report_executor/internal/catalog"
	"github.com/atlekbai/report_executor/internal/ident"
)

const (
	// MaxLimit bounds every result set. It is also the default limit.
	MaxLimit = 1000
	// maxListValues bounds the number of placeholders an IN filter may add.
	maxListValues = 1000
)

// Validator checks report configs against a catalog and resolves them into
// plans. It holds no mutable state.
type Validator struct {
	catalog  *catalog.Catalog
	maxLimit int
}

// NewValidator returns a validator over cat. A maxLimit <= 0 selects MaxLimit.
func NewValidator(cat *catalog.Catalog, maxLimit int) *Validator {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	return &Validator{catalog: cat, maxLimit: maxLimit}
}

// scope is the set of tables a config may reference: the base table plus the
// tables it joins.
type scope struct {
	base   *catalog.DataSource
	joined map[string]*catalog.DataSource
	sel    []SelectItem
}

// Validate resolves cfg into a Plan. Checks run in a fixed order and the first
// failure is returned as an *Error.
func (v *Validator) Validate(cfg *ReportConfig) (*Plan, error) {
	if cfg == nil || cfg.DataSourceID == "" {
		return nil, newError(KindInvalidDataSource, "Data source ID is required")
	}
	base := v.catalog.Get(cfg.DataSourceID)
	if base == nil {
		return nil, newError(KindInvalidDataSource, "Invalid data source: %s", cfg.DataSourceID)
	}
	if len(cfg.Fields) == 0 {
		return nil, newError(KindInvalidField, "At least one field must be selected")
	}

	for _, f := range cfg.Fields {
		if f.Formula != "" {
			return nil, newError(KindUnsupportedFormula, "Custom formulas are not supported")
		}
	}

	sc := &scope{base: base, joined: make(map[string]*catalog.DataSource)}
	for _, j := range cfg.Joins {
		if ds := v.catalog.ByTable(j.Table); ds != nil && base.CanJoin(j.Table) {
			sc.joined[j.Table] = ds
		}
	}

	plan := &Plan{Source: base}

	sel, err := v.resolveFields(sc, cfg.Fields)
	if err != nil {
		return nil, err
	}
	if err := applyAliases(sel, cfg.Fields); err != nil {
		return nil, err
	}
	plan.Select = sel
	sc.sel = sel

	if plan.Joins, err = v.resolveJoins(sc, cfg.Joins); err != nil {
		return nil, err
	}

	if plan.Where, err = resolvePredicates(sc, cfg.Filters, false); err != nil {
		return nil, err
	}

	for _, id := range cfg.GroupBy {
		ref, ok := sc.resolveRef("", id)
		if !ok {
			return nil, newError(KindInvalidField, "Invalid group by field: %s", id)
		}
		plan.GroupBy = append(plan.GroupBy, ref.col)
	}

	if plan.Having, err = resolvePredicates(sc, cfg.Having, true); err != nil {
		return nil, err
	}

	if plan.OrderBy, err = resolveSorts(sc, cfg.SortBy, plan.GroupBy); err != nil {
		return nil, err
	}

	if plan.Limit, plan.Offset, err = v.resolvePage(cfg.Limit, cfg.Offset); err != nil {
		return nil, err
	}

	return plan, nil
}

// resolved is a field found through the catalog together with its column.
type resolved struct {
	field *catalog.Field
	col   ColumnRef
}

func qualified(table, id string) string {
	if table == "" {
		return id
	}
	return table + "." + id
}

// resolveRef finds field id in table, or, when table is empty, in the base
// data source and then among the selected fields.
func (sc *scope) resolveRef(table, id string) (resolved, bool) {
	if table == "" {
		if before, after, ok := strings.Cut(id, "."); ok {
			table, id = before, after
		}
	}

	var ds *catalog.DataSource
	switch {
	case table == "":
		if f := sc.base.Field(id); f != nil {
			return resolved{field: f, col: ColumnRef{Table: sc.base.BaseTable, Column: f.Column}}, true
		}
		for _, s := range sc.sel {
			if s.FieldID == id && s.Column.Table != sc.base.BaseTable {
				if ds := sc.joined[s.Column.Table]; ds != nil {
					return resolved{field: ds.Field(id), col: s.Column}, true
				}
			}
		}
		return resolved{}, false
	case table == sc.base.BaseTable || table == sc.base.ID:
		ds = sc.base
	default:
		ds = sc.joined[table]
	}
	if ds == nil {
		return resolved{}, false
	}
	f := ds.Field(id)
	if f == nil {
		return resolved{}, false
	}
	return resolved{field: f, col: ColumnRef{Table: ds.BaseTable, Column: f.Column}}, true
}

// resolveColumn resolves a "table.name" join side against the tables joined so
// far. name may be a field id or a catalog column name.
func (sc *scope) resolveColumn(side string, avail map[string]bool) (ColumnRef, bool) {
	if _, err := ident.SafeColumnName(side); err != nil {
		return ColumnRef{}, false
	}
	table, name, ok := strings.Cut(side, ".")
	if !ok || table == "" || name == "" {
		return ColumnRef{}, false
	}
	var ds *catalog.DataSource
	switch {
	case table == sc.base.BaseTable:
		ds = sc.base
	case avail[table]:
		ds = sc.joined[table]
	}
	if ds == nil {
		return ColumnRef{}, false
	}
	if f := ds.Field(name); f != nil {
		return ColumnRef{Table: ds.BaseTable, Column: f.Column}, true
	}
	for _, id := range ds.FieldIDs() {
		if f := ds.Field(id); f.Column == name {
			return ColumnRef{Table: ds.BaseTable, Column: f.Column}, true
		}
	}
	return ColumnRef{}, false
}

func (v *Validator) resolveFields(sc *scope, specs []FieldSpec) ([]SelectItem, error) {
	items := make([]SelectItem, 0, len(specs))
	for _, fs := range specs {
		if fs.FieldID == "" {
			return nil, newError(KindInvalidField, "Invalid field: field ID is required")
		}
		ref, ok := sc.resolveRef(fs.Table, fs.FieldID)
		if !ok {
			return nil, newError(KindInvalidField, "Invalid field: %s", qualified(fs.Table, fs.FieldID))
		}
		agg, ok := ParseAggregation(fs.Aggregation)
		if !ok {
			return nil, newError(KindInvalidField, "Invalid aggregation: %s", fs.Aggregation)
		}
		if agg.NeedsNumeric() && !ref.field.IsNumeric() {
			return nil, newError(KindInvalidField, "Aggregation %s requires a numeric field: %s", agg, fs.FieldID)
		}
		items = append(items, SelectItem{FieldID: ref.field.ID, Column: ref.col, Agg: agg})
	}
	return items, nil
}

// applyAliases validates user aliases and assigns defaults. Output names must
// be unique.
func applyAliases(items []SelectItem, specs []FieldSpec) error {
	seen := make(map[string]bool, len(items))
	for i := range items {
		alias := specs[i].Alias
		if alias != "" {
			if _, err := ident.SafeIdentifier(alias); err != nil {
				return newError(KindInvalidAlias, "Invalid alias format: %s", alias)
			}
		} else {
			alias = defaultAlias(items[i])
			if len(alias) > ident.MaxLength {
				return newError(KindInvalidAlias, "Default alias %s is too long, provide an alias", alias)
			}
		}
		key := strings.ToLower(alias)
		if seen[key] {
			return newError(KindInvalidAlias, "Duplicate output column: %s", alias)
		}
		seen[key] = true
		items[i].Alias = alias
	}
	return nil
}

func defaultAlias(s SelectItem) string {
	if s.Agg == AggNone {
		return s.FieldID
	}
	return s.FieldID + "_" + string(s.Agg)
}

func (v *Validator) resolveJoins(sc *scope, specs []JoinSpec) ([]JoinClause, error) {
	joins := make([]JoinClause, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, js := range specs {
		jt, ok := ParseJoinType(js.Type)
		if !ok {
			return nil, newError(KindInvalidJoinType, "Invalid join type: %s", js.Type)
		}
		ds := sc.joined[js.Table]
		if ds == nil {
			return nil, newError(KindInvalidField, "Invalid join table: %s", js.Table)
		}
		if seen[js.Table] {
			return nil, newError(KindInvalidField, "Table %s is joined more than once", js.Table)
		}
		seen[js.Table] = true

		left, ok := sc.resolveColumn(js.On.LeftField, seen)
		if !ok {
			return nil, newError(KindInvalidField, "Invalid join field: %s", js.On.LeftField)
		}
		right, ok := sc.resolveColumn(js.On.RightField, seen)
		if !ok {
			return nil, newError(KindInvalidField, "Invalid join field: %s", js.On.RightField)
		}
		op, ok := ParseJoinOperator(js.On.Operator)
		if !ok {
			return nil, newError(KindInvalidJoinType, "Invalid join operator: %s", js.On.Operator)
		}

		joins = append(joins, JoinClause{
			Type:         jt,
			Schema:       ds.Schema,
			Table:        ds.BaseTable,
			TenantColumn: ds.TenantColumn,
			Left:         left,
			Op:           op,
			Right:        right,
		})
	}
	return joins, nil
}

func resolvePredicates(sc *scope, specs []FilterSpec, having bool) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(specs))
	for _, fs := range specs {
		p, err := resolvePredicate(sc, fs, having)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func resolvePredicate(sc *scope, fs FilterSpec, having bool) (Predicate, error) {
	ref, ok := sc.resolveRef(fs.Table, fs.FieldID)
	if !ok {
		return Predicate{}, newError(KindInvalidFilter, "Invalid filter field: %s", qualified(fs.Table, fs.FieldID))
	}
	op, ok := ParseOperator(fs.Operator)
	if !ok {
		return Predicate{}, newError(KindInvalidFilter, "Invalid filter operator: %s", fs.Operator)
	}
	logic, ok := ParseLogicalOperator(fs.LogicalOperator)
	if !ok {
		return Predicate{}, newError(KindInvalidFilter, "Invalid logical operator: %s", fs.LogicalOperator)
	}

	p := Predicate{Column: ref.col, Op: op, Logic: logic}

	// The type values are checked against: the field's own type, or a number
	// for aggregates that always produce one.
	valueType := ref.field.Type
	if having {
		agg, err := havingAggregation(sc, fs, ref)
		if err != nil {
			return Predicate{}, err
		}
		p.Agg = agg
		if agg == AggCount || agg == AggCountDistinct || agg == AggAvg || agg == AggSum {
			valueType = catalog.FieldNumber
		}
	}

	args, err := bindArgs(fs, op, valueType)
	if err != nil {
		return Predicate{}, err
	}
	p.Args = args
	return p, nil
}

// havingAggregation picks the aggregate a HAVING predicate compares: the one
// named on the filter, else the aggregate the field is selected with, else
// COUNT.
func havingAggregation(sc *scope, fs FilterSpec, ref resolved) (Aggregation, error) {
	if fs.Aggregation != "" {
		agg, ok := ParseAggregation(fs.Aggregation)
		if !ok {
			return "", newError(KindInvalidFilter, "Invalid having aggregation: %s", fs.Aggregation)
		}
		if agg.NeedsNumeric() && !ref.field.IsNumeric() {
			return "", newError(KindInvalidFilter, "Aggregation %s requires a numeric field: %s", agg, fs.FieldID)
		}
		return agg, nil
	}
	for _, s := range sc.sel {
		if s.Agg != AggNone && s.Column == ref.col {
			return s.Agg, nil
		}
	}
	return AggCount, nil
}

func bindArgs(fs FilterSpec, op Operator, typ catalog.FieldType) ([]any, error) {
	switch op.Arity() {
	case ArityNone:
		return nil, nil

	case ArityScalar:
		if fs.Value == nil {
			return nil, newError(KindInvalidFilter, "Filter on %s: operator %s requires a value", fs.FieldID, op)
		}
		if op == OpLike {
			s, ok := fs.Value.(string)
			if !ok || typ != catalog.FieldText {
				return nil, newError(KindInvalidFilter, "Filter on %s: operator like requires a text value on a text field", fs.FieldID)
			}
			if !strings.Contains(s, "%") {
				s = "%" + s + "%"
			}
			return []any{s}, nil
		}
		v, err := coerce(fs.Value, typ)
		if err != nil {
			return nil, newError(KindInvalidFilter, "Filter on %s: %v", fs.FieldID, err)
		}
		return []any{v}, nil

	case ArityList:
		switch {
		case len(fs.Values) == 0:
			return nil, newError(KindInvalidFilter, "Filter on %s: operator %s requires values", fs.FieldID, op)
		case op == OpBetween && len(fs.Values) != 2:
			return nil, newError(KindInvalidFilter, "Filter on %s: operator between requires exactly 2 values", fs.FieldID)
		case len(fs.Values) > maxListValues:
			return nil, newError(KindInvalidFilter, "Filter on %s: at most %d values allowed", fs.FieldID, maxListValues)
		}
		args := make([]any, 0, len(fs.Values))
		for _, raw := range fs.Values {
			v, err := coerce(raw, typ)
			if err != nil {
				return nil, newError(KindInvalidFilter, "Filter on %s: %v", fs.FieldID, err)
			}
			args = append(args, v)
		}
		return args, nil
	}

	return nil, newError(KindInvalidFilter, "Invalid filter operator: %s", op)
}

func resolveSorts(sc *scope, specs []SortSpec, groupBy []ColumnRef) ([]OrderTerm, error) {
	grouped := make(map[ColumnRef]bool, len(groupBy))
	for _, g := range groupBy {
		grouped[g] = true
	}

	terms := make([]OrderTerm, 0, len(specs))
	for _, ss := range specs {
		ref, ok := sc.resolveRef(ss.Table, ss.FieldID)
		if !ok {
			return nil, newError(KindInvalidSort, "Invalid sort field: %s", qualified(ss.Table, ss.FieldID))
		}
		dir, ok := ParseDirection(ss.Direction)
		if !ok {
			return nil, newError(KindInvalidSort, "Invalid sort direction: %s", ss.Direction)
		}
		nulls, ok := ParseNullsOrder(ss.Nulls)
		if !ok {
			return nil, newError(KindInvalidSort, "Invalid nulls ordering: %s", ss.Nulls)
		}
		term := OrderTerm{Column: ref.col, Dir: dir, Nulls: nulls}
		if !grouped[ref.col] {
			term.Agg = sortAggregation(sc.sel, ref.col)
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// sortAggregation returns the aggregate to sort by when col is only selected
// in aggregated form.
func sortAggregation(sel []SelectItem, col ColumnRef) Aggregation {
	agg := AggNone
	for _, s := range sel {
		if s.Column != col {
			continue
		}
		if s.Agg == AggNone {
			return AggNone
		}
		if agg == AggNone {
			agg = s.Agg
		}
	}
	return agg
}

func (v *Validator) resolvePage(limit, offset *int) (int, int, error) {
	lim := v.maxLimit
	if limit != nil {
		if *limit < 0 {
			return 0, 0, newError(KindInvalidPagination, "Limit must be a non-negative integer")
		}
		if *limit > 0 && *limit < v.maxLimit {
			lim = *limit
		}
	}
	off := 0
	if offset != nil {
		if *offset < 0 {
			return 0, 0, newError(KindInvalidPagination, "Offset must be a non-negative integer")
		}
		off = *offset
	}
	return lim, off, nil
}

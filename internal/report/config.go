package report

import (
	"encoding/json"
	"io"
)

// ReportConfig is the end-user authored report description. Every string in
// it is untrusted.
type ReportConfig struct {
	DataSourceID string       `json:"dataSourceId"`
	Fields       []FieldSpec  `json:"fields"`
	Filters      []FilterSpec `json:"filters,omitempty"`
	Joins        []JoinSpec   `json:"joins,omitempty"`
	GroupBy      []string     `json:"groupBy,omitempty"`
	Having       []FilterSpec `json:"having,omitempty"`
	SortBy       []SortSpec   `json:"sortBy,omitempty"`
	Limit        *int         `json:"limit,omitempty"`
	Offset       *int         `json:"offset,omitempty"`
}

type FieldSpec struct {
	FieldID     string `json:"fieldId"`
	FieldName   string `json:"fieldName,omitempty"` // display only
	Table       string `json:"table,omitempty"`
	Aggregation string `json:"aggregation,omitempty"`
	Alias       string `json:"alias,omitempty"`
	Formula     string `json:"formula,omitempty"` // always rejected
}

type FilterSpec struct {
	FieldID         string `json:"fieldId"`
	FieldName       string `json:"fieldName,omitempty"`
	Table           string `json:"table,omitempty"`
	Operator        string `json:"operator"`
	Value           any    `json:"value,omitempty"`
	Values          []any  `json:"values,omitempty"`
	LogicalOperator string `json:"logicalOperator,omitempty"`
	// Aggregation selects the aggregate a HAVING predicate compares against.
	Aggregation string `json:"aggregation,omitempty"`
}

type JoinSpec struct {
	Table string        `json:"table"`
	Type  string        `json:"type"`
	On    JoinCondition `json:"on"`
}

// JoinCondition sides are written "table.column".
type JoinCondition struct {
	LeftField  string `json:"leftField"`
	RightField string `json:"rightField"`
	Operator   string `json:"operator,omitempty"`
}

type SortSpec struct {
	FieldID   string `json:"fieldId"`
	Table     string `json:"table,omitempty"`
	Direction string `json:"direction,omitempty"`
	Nulls     string `json:"nulls,omitempty"`
}

// ParseConfig decodes a JSON report configuration. Numbers are kept as
// json.Number so the validator can coerce them against the field type.
func ParseConfig(r io.Reader) (*ReportConfig, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var cfg ReportConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, newError(KindInvalidRequest, "Invalid report config: %v", err)
	}
	return &cfg, nil
}

// Int returns a pointer to n, for building configs in code.
func Int(n int) *int { return &n }

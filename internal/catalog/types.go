package catalog

import (
	"sort"

	"github.com/atlekbai/report_executor/internal/ident"
)

type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldBoolean FieldType = "boolean"
)

var validFieldTypes = map[FieldType]bool{
	FieldText: true, FieldNumber: true, FieldDate: true, FieldBoolean: true,
}

// Field is a reportable column of a data source.
type Field struct {
	ID     string
	Column string
	Type   FieldType
}

// IsNumeric returns true if values bound against the field should be numbers.
func (f *Field) IsNumeric() bool {
	return f.Type == FieldNumber
}

// DataSource is one reportable entity backed by a single physical table.
type DataSource struct {
	ID        string
	Title     string
	Schema    string // optional, "" means search_path
	BaseTable string
	// TenantColumn holds the organization id; queries against the source are
	// always scoped to the caller's tenant when it is set.
	TenantColumn string
	Fields       map[string]*Field
	Joinable     map[string]bool
}

// TableName returns the quoted, optionally schema-qualified table name.
func (d *DataSource) TableName() string {
	return ident.QuoteQualified(d.Schema, d.BaseTable)
}

// Field looks up a field by id.
func (d *DataSource) Field(id string) *Field {
	return d.Fields[id]
}

// CanJoin reports whether table is declared joinable from this data source.
func (d *DataSource) CanJoin(table string) bool {
	return d.Joinable[table]
}

// FieldIDs returns the field ids sorted.
func (d *DataSource) FieldIDs() []string {
	ids := make([]string, 0, len(d.Fields))
	for id := range d.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// JoinableTables returns the joinable table names sorted.
func (d *DataSource) JoinableTables() []string {
	tables := make([]string, 0, len(d.Joinable))
	for t := range d.Joinable {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

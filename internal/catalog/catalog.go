// Package catalog holds the trusted description of what reports may read:
// data sources, their base tables, fields and joinable tables.
//
// A Catalog is built once at startup and never mutated afterwards, so it can
// be shared by any number of concurrent report executions.
package catalog

import (
	"fmt"
	"sort"

	"github.com/atlekbai/report_executor/internal/ident"
)

type Catalog struct {
	sources map[string]*DataSource
	byTable map[string]*DataSource
}

// New builds a catalog from the given data sources. The sources are copied;
// later changes to the arguments do not affect the catalog.
func New(sources ...*DataSource) (*Catalog, error) {
	c := &Catalog{
		sources: make(map[string]*DataSource, len(sources)),
		byTable: make(map[string]*DataSource, len(sources)),
	}

	for _, src := range sources {
		if src == nil {
			continue
		}
		ds, err := copySource(src)
		if err != nil {
			return nil, err
		}
		if _, dup := c.sources[ds.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate data source %q", ds.ID)
		}
		if other, dup := c.byTable[ds.BaseTable]; dup {
			return nil, fmt.Errorf("catalog: table %q registered by both %q and %q", ds.BaseTable, other.ID, ds.ID)
		}
		c.sources[ds.ID] = ds
		c.byTable[ds.BaseTable] = ds
	}

	for _, ds := range c.sources {
		for table := range ds.Joinable {
			if c.byTable[table] == nil {
				return nil, fmt.Errorf("catalog: data source %q declares joinable table %q with no registered fields", ds.ID, table)
			}
		}
	}

	return c, nil
}

// MustNew is like New but panics on error. Intended for static catalogs.
func MustNew(sources ...*DataSource) *Catalog {
	c, err := New(sources...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the data source registered under id, or nil.
func (c *Catalog) Get(id string) *DataSource {
	return c.sources[id]
}

// ByTable returns the data source whose base table is table, or nil.
func (c *Catalog) ByTable(table string) *DataSource {
	return c.byTable[table]
}

// IDs returns all data source ids sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.sources))
	for id := range c.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SourceCount returns the number of registered data sources.
func (c *Catalog) SourceCount() int {
	return len(c.sources)
}

func copySource(src *DataSource) (*DataSource, error) {
	if src.ID == "" {
		return nil, fmt.Errorf("catalog: data source with empty id")
	}
	if _, err := ident.SafeIdentifier(src.BaseTable); err != nil {
		return nil, fmt.Errorf("catalog: data source %q: base table: %w", src.ID, err)
	}
	if src.Schema != "" {
		if _, err := ident.SafeTableName(src.Schema + "." + src.BaseTable); err != nil {
			return nil, fmt.Errorf("catalog: data source %q: schema: %w", src.ID, err)
		}
	}
	if src.TenantColumn != "" {
		if _, err := ident.SafeIdentifier(src.TenantColumn); err != nil {
			return nil, fmt.Errorf("catalog: data source %q: tenant column: %w", src.ID, err)
		}
	}

	ds := &DataSource{
		ID:           src.ID,
		Title:        src.Title,
		Schema:       src.Schema,
		BaseTable:    src.BaseTable,
		TenantColumn: src.TenantColumn,
		Fields:       make(map[string]*Field, len(src.Fields)),
		Joinable:     make(map[string]bool, len(src.Joinable)),
	}

	for id, f := range src.Fields {
		if f == nil {
			continue
		}
		if f.ID != "" && f.ID != id {
			return nil, fmt.Errorf("catalog: data source %q: field key %q does not match id %q", src.ID, id, f.ID)
		}
		// Field ids double as default output aliases.
		if _, err := ident.SafeIdentifier(id); err != nil {
			return nil, fmt.Errorf("catalog: data source %q: field id: %w", src.ID, err)
		}
		if _, err := ident.SafeIdentifier(f.Column); err != nil {
			return nil, fmt.Errorf("catalog: data source %q: field %q: %w", src.ID, id, err)
		}
		if !validFieldTypes[f.Type] {
			return nil, fmt.Errorf("catalog: data source %q: field %q: unknown type %q", src.ID, id, f.Type)
		}
		ds.Fields[id] = &Field{ID: id, Column: f.Column, Type: f.Type}
	}

	for table, ok := range src.Joinable {
		if !ok {
			continue
		}
		if _, err := ident.SafeIdentifier(table); err != nil {
			return nil, fmt.Errorf("catalog: data source %q: joinable table: %w", src.ID, err)
		}
		ds.Joinable[table] = true
	}

	return ds, nil
}

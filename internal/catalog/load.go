package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSource is the on-disk shape of a data source:
//
//	sources:
//	  - id: claims
//	    table: claims
//	    tenant_column: organization_id
//	    joinable: [organization_members]
//	    fields:
//	      status: {column: status, type: text}
type fileSource struct {
	ID           string               `yaml:"id"`
	Title        string               `yaml:"title"`
	Schema       string               `yaml:"schema"`
	Table        string               `yaml:"table"`
	TenantColumn string               `yaml:"tenant_column"`
	Joinable     []string             `yaml:"joinable"`
	Fields       map[string]fileField `yaml:"fields"`
}

type fileField struct {
	Column string    `yaml:"column"`
	Type   FieldType `yaml:"type"`
}

type fileCatalog struct {
	Sources []fileSource `yaml:"sources"`
}

// Load reads a YAML catalog file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog load: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a YAML catalog document. Unknown keys are rejected.
func Decode(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog read: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc fileCatalog
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog decode: %w", err)
	}

	sources := make([]*DataSource, 0, len(doc.Sources))
	for _, fs := range doc.Sources {
		ds := &DataSource{
			ID:           fs.ID,
			Title:        fs.Title,
			Schema:       fs.Schema,
			BaseTable:    fs.Table,
			TenantColumn: fs.TenantColumn,
			Fields:       make(map[string]*Field, len(fs.Fields)),
			Joinable:     make(map[string]bool, len(fs.Joinable)),
		}
		if ds.BaseTable == "" {
			ds.BaseTable = fs.ID
		}
		for id, ff := range fs.Fields {
			col := ff.Column
			if col == "" {
				col = id
			}
			ds.Fields[id] = &Field{ID: id, Column: col, Type: ff.Type}
		}
		for _, t := range fs.Joinable {
			ds.Joinable[t] = true
		}
		sources = append(sources, ds)
	}

	return New(sources...)
}

// Package schema holds the declarative schema model for tabular datasets:
// dataset → tables → (possibly nested) fields, and their resolution to Arrow
// runtime types.
package schema

import (
	"fmt"
	"strings"
)

// DatasetSchema groups the table schemas of one dataset. Table names are
// expected to be unique but this is not enforced; Select returns the first
// match.
type DatasetSchema struct {
	Name        string
	Description string
	Tables      []*TableSchema
}

// NewDatasetSchema validates a dataset definition and builds its schema.
func NewDatasetSchema(def Definition) (*DatasetSchema, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, &DefinitionError{Message: "dataset name is required"}
	}
	ds := &DatasetSchema{
		Name:        def.Name,
		Description: def.Description,
		Tables:      make([]*TableSchema, 0, len(def.Tables)),
	}
	for _, td := range def.Tables {
		t, err := NewTableSchema(td)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", def.Name, err)
		}
		ds.Tables = append(ds.Tables, t)
	}
	return ds, nil
}

// Select returns the table with the given name.
func (d *DatasetSchema) Select(name string) (*TableSchema, error) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, &TableNotFoundError{Dataset: d.Name, Table: name, Available: d.TableNames()}
}

// TableNames returns the table names in declared order.
func (d *DatasetSchema) TableNames() []string {
	names := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		names[i] = t.Name
	}
	return names
}

// Definition converts the dataset back into its declarative form.
func (d *DatasetSchema) Definition() Definition {
	def := Definition{Name: d.Name, Description: d.Description}
	for _, t := range d.Tables {
		def.Tables = append(def.Tables, t.Definition())
	}
	return def
}

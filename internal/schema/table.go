package schema

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// TableSchema is the declared shape of one table: ordered, uniquely named
// columns.
type TableSchema struct {
	Name        string
	Description string
	Columns     []Field
}

// NewTableSchema validates a table definition and builds its schema.
func NewTableSchema(def TableDefinition) (*TableSchema, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, &DefinitionError{Message: "table name is required"}
	}
	columns, err := newFields(def.Columns, "")
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", def.Name, err)
	}
	return &TableSchema{
		Name:        def.Name,
		Description: def.Description,
		Columns:     columns,
	}, nil
}

// ColumnNames returns the declared column names in order.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a declared column by name.
func (t *TableSchema) Column(name string) (Field, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Field{}, false
}

// RuntimeTypes maps every column name to its resolved Arrow type. Use
// ArrowSchema when column order matters.
func (t *TableSchema) RuntimeTypes() (map[string]arrow.DataType, error) {
	types := make(map[string]arrow.DataType, len(t.Columns))
	for _, c := range t.Columns {
		dt, err := c.RuntimeType()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		types[c.Name] = dt
	}
	return types, nil
}

// ArrowSchema returns the table as an Arrow schema, suitable for building
// record batches that conform to it.
func (t *TableSchema) ArrowSchema() (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(t.Columns))
	for _, c := range t.Columns {
		af, err := c.ArrowField()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		fields = append(fields, af)
	}
	return arrow.NewSchema(fields, nil), nil
}

// Definition converts the table back into its declarative form.
func (t *TableSchema) Definition() TableDefinition {
	def := TableDefinition{Name: t.Name, Description: t.Description}
	for _, c := range t.Columns {
		def.Columns = append(def.Columns, c.Definition())
	}
	return def
}

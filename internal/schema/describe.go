package schema

// ColumnDescription is a display view of a field with its resolved Arrow type.
type ColumnDescription struct {
	Name        string              `json:"name"`
	Type        string              `json:"type"`
	ArrowType   string              `json:"arrow_type"`
	Nullable    bool                `json:"nullable"`
	Description string              `json:"description,omitempty"`
	ElementType string              `json:"element_type,omitempty"`
	Fields      []ColumnDescription `json:"fields,omitempty"`
}

// TableDescription is a display view of a table schema.
type TableDescription struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Columns     []ColumnDescription `json:"columns"`
}

// Describe renders the table for display. Fields built by NewField always
// resolve; a field that does not gets an empty ArrowType.
func Describe(t *TableSchema) TableDescription {
	out := TableDescription{
		Name:        t.Name,
		Description: t.Description,
		Columns:     make([]ColumnDescription, 0, len(t.Columns)),
	}
	for _, c := range t.Columns {
		out.Columns = append(out.Columns, describeField(c))
	}
	return out
}

func describeField(f Field) ColumnDescription {
	d := ColumnDescription{
		Name:        f.Name,
		Type:        f.Kind,
		Nullable:    f.Nullable,
		Description: f.Description,
		ElementType: f.ElementType(),
	}
	if dt, err := f.RuntimeType(); err == nil {
		d.ArrowType = dt.String()
	}
	children := f.Fields
	if f.Elem != nil {
		children = f.Elem.Fields
	}
	for _, child := range children {
		d.Fields = append(d.Fields, describeField(child))
	}
	return d
}

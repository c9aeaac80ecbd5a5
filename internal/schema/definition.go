package schema

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Definition is the declarative form of a dataset schema, as written in a
// schema file or handed over as an already-parsed mapping.
type Definition struct {
	Name        string            `yaml:"name" mapstructure:"name" json:"name"`
	Description string            `yaml:"description,omitempty" mapstructure:"description" json:"description,omitempty"`
	Tables      []TableDefinition `yaml:"tables" mapstructure:"tables" json:"tables"`
}

// TableDefinition declares one table and its ordered columns.
type TableDefinition struct {
	Name        string            `yaml:"name" mapstructure:"name" json:"name"`
	Description string            `yaml:"description,omitempty" mapstructure:"description" json:"description,omitempty"`
	Columns     []FieldDefinition `yaml:"columns" mapstructure:"columns" json:"columns"`
}

// FieldDefinition declares a column, a struct member or a list element.
// Fields is used by struct types and by lists whose element_type is struct.
type FieldDefinition struct {
	Name        string            `yaml:"name" mapstructure:"name" json:"name"`
	Type        string            `yaml:"type" mapstructure:"type" json:"type"`
	Nullable    bool              `yaml:"nullable,omitempty" mapstructure:"nullable" json:"nullable"`
	Description string            `yaml:"description,omitempty" mapstructure:"description" json:"description,omitempty"`
	Fields      []FieldDefinition `yaml:"fields,omitempty" mapstructure:"fields" json:"fields,omitempty"`
	ElementType string            `yaml:"element_type,omitempty" mapstructure:"element_type" json:"element_type,omitempty"`
}

// Decode builds a DatasetSchema from an already-parsed nested mapping such
// as the output of a YAML or JSON decoder. Unknown keys are rejected.
func Decode(raw map[string]interface{}) (*DatasetSchema, error) {
	var def Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: false,
		TagName:          "mapstructure",
		Result:           &def,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &DefinitionError{Message: fmt.Sprintf("decode schema definition: %v", err), Err: err}
	}
	return NewDatasetSchema(def)
}

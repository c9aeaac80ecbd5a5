package schema

import (
	"fmt"
	"strings"
)

// DefinitionError indicates a malformed schema definition. Field holds the
// dotted path of the offending field (e.g. "orders.address.city"). Err is
// the underlying decoder error, if any.
type DefinitionError struct {
	Field   string
	Message string
	Err     error
}

func (e *DefinitionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// UnknownTypeError indicates a type name with no runtime type mapping.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown data type: %q", e.Name)
}

// TableNotFoundError is returned by DatasetSchema.Select.
type TableNotFoundError struct {
	Dataset   string
	Table     string
	Available []string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table '%s' not found in dataset '%s'. Available tables: %s",
		e.Table, e.Dataset, strings.Join(e.Available, ", "))
}

func errDefinition(path, format string, args ...interface{}) *DefinitionError {
	return &DefinitionError{Field: path, Message: fmt.Sprintf(format, args...)}
}

// Package validate reconciles a dataset's observed column types and null
// counts against a declared table schema.
package validate

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"tabschema/internal/schema"
)

// Dataset is the read-only view of tabular data the validator needs.
type Dataset interface {
	// Columns returns the column names in dataset order.
	Columns() []string
	// TypeOf returns the runtime type of a column, or nil if unknown.
	TypeOf(column string) arrow.DataType
	// NullCount returns the number of null values in a column.
	NullCount(column string) int
}

// ValidationError is the strict-mode failure carrying every discrepancy.
type ValidationError struct {
	Table   string
	Message string
	Errors  []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	return e.Message + "\n - " + strings.Join(e.Errors, "\n - ")
}

type options struct {
	logger *slog.Logger
}

// Option configures a validation call.
type Option func(*options)

// WithLogger sets the logger used for per-column diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Validate checks ds against table and returns every discrepancy found, in
// order: missing columns, extra columns, then per-column problems in
// declared column order. It never stops at the first problem.
func Validate(ds Dataset, table *schema.TableSchema, opts ...Option) []string {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("table", table.Name)
	logger.Debug("validating dataset")

	actual := ds.Columns()
	actualSet := make(map[string]bool, len(actual))
	for _, name := range actual {
		actualSet[name] = true
	}
	declaredSet := make(map[string]bool, len(table.Columns))
	for _, c := range table.Columns {
		declaredSet[c.Name] = true
	}

	errs := []string{}

	var missing []string
	for _, c := range table.Columns {
		if !actualSet[c.Name] {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		msg := "missing columns: " + strings.Join(missing, ", ")
		logger.Warn(msg)
		errs = append(errs, msg)
	}

	var extra []string
	seenExtra := make(map[string]bool)
	for _, name := range actual {
		if !declaredSet[name] && !seenExtra[name] {
			seenExtra[name] = true
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		msg := "extra columns: " + strings.Join(extra, ", ")
		logger.Info(msg)
		errs = append(errs, msg)
	}

	for _, c := range table.Columns {
		if actualSet[c.Name] {
			errs = append(errs, validateColumn(ds, c, logger)...)
		}
	}

	if len(errs) == 0 {
		logger.Info("dataset matches schema")
	} else {
		logger.Warn("dataset does not match schema", "errors", len(errs))
	}
	return errs
}

// ValidateStrict runs Validate and returns a *ValidationError when any
// discrepancy is found.
func ValidateStrict(ds Dataset, table *schema.TableSchema, opts ...Option) error {
	errs := Validate(ds, table, opts...)
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{
		Table:   table.Name,
		Message: fmt.Sprintf("dataset validation failed for schema '%s'", table.Name),
		Errors:  errs,
	}
}

// validateColumn checks one declared column that is present in ds.
func validateColumn(ds Dataset, col schema.Field, logger *slog.Logger) []string {
	var errs []string
	report := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		logger.Warn(msg)
		errs = append(errs, msg)
	}

	expected, err := col.RuntimeType()
	actual := ds.TypeOf(col.Name)
	switch {
	case err != nil:
		report("column '%s' has an invalid schema definition: %v", col.Name, err)
	case actual == nil:
		logger.Debug("runtime type unavailable, skipping type check", "column", col.Name)
	default:
		logger.Debug("checking column", "column", col.Name, "expected", expected.String(), "actual", actual.String())
		switch {
		case isStructLike(expected):
			if !isStructLike(actual) {
				report("column '%s' has type %s, expected a struct type", col.Name, actual)
				break
			}
			if missing := missingStructFields(expected, actual); len(missing) > 0 {
				report("column '%s' is missing struct fields: %s", col.Name, strings.Join(missing, ", "))
			}
		case isListLike(expected):
			if !isListLike(actual) {
				report("column '%s' has type %s, expected a list type", col.Name, actual)
			}
		default:
			if !Compatible(expected, actual) {
				report("column '%s' has type %s, expected %s", col.Name, actual, expected)
			}
		}
	}

	if !col.Nullable && ds.NullCount(col.Name) > 0 {
		report("column '%s' contains null values but is not nullable", col.Name)
	}
	return errs
}

// missingStructFields returns the expected top-level member names absent
// from actual. Member types are not compared. Types that do not expose
// field introspection yield no result.
func missingStructFields(expected, actual arrow.DataType) []string {
	want, ok := structFieldNames(expected)
	if !ok {
		return nil
	}
	have, ok := structFieldNames(actual)
	if !ok {
		return nil
	}
	present := make(map[string]bool, len(have))
	for _, n := range have {
		present[n] = true
	}
	var missing []string
	for _, n := range want {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	return missing
}

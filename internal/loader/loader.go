// Package loader reads dataset schema documents (YAML, or JSON as a YAML
// subset) from bytes, local files, or object storage.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"tabschema/internal/objstore"
	"tabschema/internal/schema"
)

// Options configures schema loading.
type Options struct {
	// AllowUnknownFields disables strict key checking.
	AllowUnknownFields bool
	Logger             *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// LoadError reports a schema document that could not be read, parsed, or
// turned into a valid schema.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load schema %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Parse decodes a schema document held in memory.
func Parse(data []byte, opts Options) (*schema.DatasetSchema, error) {
	return parse("<inline>", data, opts)
}

// LoadFile reads and decodes the schema document at path.
func LoadFile(path string, opts Options) (*schema.DatasetSchema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading user-specified schema files
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	return parse(path, data, opts)
}

// Loader loads schema documents through an objstore.Opener.
type Loader struct {
	opener objstore.Opener
	opts   Options
}

// New creates a Loader. A nil opener reads local files only.
func New(opener objstore.Opener, opts Options) *Loader {
	if opener == nil {
		opener = objstore.LocalReader{}
	}
	return &Loader{opener: opener, opts: opts}
}

// Load reads and decodes the schema document at uri.
func (l *Loader) Load(ctx context.Context, uri string) (*schema.DatasetSchema, error) {
	rc, err := l.opener.Open(ctx, uri)
	if err != nil {
		return nil, &LoadError{Source: uri, Err: err}
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &LoadError{Source: uri, Err: fmt.Errorf("read: %w", err)}
	}
	return parse(uri, data, l.opts)
}

func parse(source string, data []byte, opts Options) (*schema.DatasetSchema, error) {
	var def schema.Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(!opts.AllowUnknownFields)
	if err := decoder.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		return nil, &LoadError{Source: source, Err: err}
	}

	ds, err := schema.NewDatasetSchema(def)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	opts.logger().Debug("loaded schema", "source", source, "dataset", ds.Name, "tables", len(ds.Tables))
	return ds, nil
}

// Package dataset adapts concrete tabular data sources (Arrow record
// batches and tables, Arrow IPC streams, DuckDB relations) to the read-only
// view used by the validator.
package dataset

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Snapshot is an immutable copy of a dataset's column names, runtime types
// and null counts. It holds no references to the underlying data.
type Snapshot struct {
	names []string
	types map[string]arrow.DataType
	nulls map[string]int
	rows  int64
}

func newSnapshot(capacity int) *Snapshot {
	return &Snapshot{
		names: make([]string, 0, capacity),
		types: make(map[string]arrow.DataType, capacity),
		nulls: make(map[string]int, capacity),
	}
}

// add registers a column. Repeated names keep their first type and
// accumulate null counts.
func (s *Snapshot) add(name string, dt arrow.DataType, nulls int) {
	if _, ok := s.types[name]; !ok {
		s.names = append(s.names, name)
		s.types[name] = dt
	}
	s.nulls[name] += nulls
}

// Columns returns the column names in dataset order.
func (s *Snapshot) Columns() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// TypeOf returns the runtime type of column, or nil if absent.
func (s *Snapshot) TypeOf(column string) arrow.DataType { return s.types[column] }

// NullCount returns the number of nulls in column.
func (s *Snapshot) NullCount(column string) int { return s.nulls[column] }

// NumRows returns the row count observed when the snapshot was taken.
func (s *Snapshot) NumRows() int64 { return s.rows }

// FromSchema builds a snapshot from an Arrow schema and per-column null
// counts. Columns absent from nulls count as having no nulls.
func FromSchema(sc *arrow.Schema, nulls map[string]int) *Snapshot {
	s := newSnapshot(sc.NumFields())
	for _, f := range sc.Fields() {
		s.add(f.Name, f.Type, 0)
	}
	for name, n := range nulls {
		if _, ok := s.types[name]; ok {
			s.nulls[name] += n
		}
	}
	return s
}

// FromRecord snapshots an Arrow record batch.
func FromRecord(rec arrow.Record) *Snapshot {
	s := newSnapshot(int(rec.NumCols()))
	sc := rec.Schema()
	for i, f := range sc.Fields() {
		s.add(f.Name, f.Type, rec.Column(i).NullN())
	}
	s.rows = rec.NumRows()
	return s
}

// FromTable snapshots an Arrow table, summing nulls across chunks.
func FromTable(tbl arrow.Table) *Snapshot {
	s := newSnapshot(int(tbl.NumCols()))
	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		s.add(col.Name(), col.DataType(), col.NullN())
	}
	s.rows = tbl.NumRows()
	return s
}

// FromIPC reads an Arrow IPC stream to the end and snapshots it. Null counts
// are summed over every record batch in the stream.
func FromIPC(r io.Reader, mem memory.Allocator) (*Snapshot, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("open arrow ipc stream: %w", err)
	}
	defer rdr.Release()

	sc := rdr.Schema()
	s := newSnapshot(sc.NumFields())
	for _, f := range sc.Fields() {
		s.add(f.Name, f.Type, 0)
	}
	for rdr.Next() {
		rec := rdr.Record()
		for i, f := range sc.Fields() {
			s.nulls[f.Name] += rec.Column(i).NullN()
		}
		s.rows += rec.NumRows()
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("read arrow ipc stream: %w", err)
	}
	return s, nil
}

// Package testutil provides shared Arrow fixtures for tests across the
// codebase, in the spirit of net/http/httptest.
package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

// Record builds a record batch from a JSON array of row objects. The record
// is released when the test ends.
func Record(t *testing.T, sc *arrow.Schema, rows string) arrow.Record {
	t.Helper()
	rec, _, err := array.RecordFromJSON(memory.DefaultAllocator, sc, strings.NewReader(rows))
	require.NoError(t, err)
	t.Cleanup(rec.Release)
	return rec
}

// IPCStream encodes one record batch per rows argument as an Arrow IPC
// stream.
func IPCStream(t *testing.T, sc *arrow.Schema, rows ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(sc))
	for _, r := range rows {
		require.NoError(t, w.Write(Record(t, sc, r)))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// OrdersSchema is the runtime schema matching OrdersYAML's "orders" table.
func OrdersSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "customer", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "amount", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "placed_at", Type: arrow.FixedWidthTypes.Timestamp_us},
	}, nil)
}

// OrdersYAML is a small dataset schema document used across tests.
const OrdersYAML = `
name: shop
description: Example shop dataset
tables:
  - name: orders
    description: One row per order
    columns:
      - name: id
        type: int64
      - name: customer
        type: string
        nullable: true
      - name: amount
        type: float
        nullable: true
      - name: placed_at
        type: datetime
  - name: customers
    columns:
      - name: id
        type: int64
      - name: address
        type: struct
        fields:
          - name: street
            type: string
          - name: city
            type: string
      - name: tags
        type: list
        element_type: string
        nullable: true
`

package dataset

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabschema/internal/testutil"
)

func TestFromRecord(t *testing.T) {
	rec := testutil.Record(t, testutil.OrdersSchema(), `[
		{"id": 1, "customer": "ann", "amount": 9.5, "placed_at": 1700000000000000},
		{"id": 2, "customer": null, "amount": null, "placed_at": 1700000000000001},
		{"id": 3, "customer": null, "amount": 1.25, "placed_at": 1700000000000002}
	]`)

	s := FromRecord(rec)
	assert.Equal(t, []string{"id", "customer", "amount", "placed_at"}, s.Columns())
	assert.Equal(t, int64(3), s.NumRows())
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int64, s.TypeOf("id")))
	assert.True(t, arrow.TypeEqual(arrow.FixedWidthTypes.Timestamp_us, s.TypeOf("placed_at")))
	assert.Equal(t, 0, s.NullCount("id"))
	assert.Equal(t, 2, s.NullCount("customer"))
	assert.Equal(t, 1, s.NullCount("amount"))
	assert.Nil(t, s.TypeOf("missing"))
	assert.Equal(t, 0, s.NullCount("missing"))
}

func TestFromTable_SumsChunks(t *testing.T) {
	sc := testutil.OrdersSchema()
	a := testutil.Record(t, sc, `[{"id": 1, "customer": null, "amount": 1, "placed_at": 0}]`)
	b := testutil.Record(t, sc, `[
		{"id": 2, "customer": null, "amount": 2, "placed_at": 0},
		{"id": 3, "customer": "x", "amount": null, "placed_at": 0}
	]`)
	tbl := array.NewTableFromRecords(sc, []arrow.Record{a, b})
	defer tbl.Release()

	s := FromTable(tbl)
	assert.Equal(t, int64(3), s.NumRows())
	assert.Equal(t, 2, s.NullCount("customer"))
	assert.Equal(t, 1, s.NullCount("amount"))
}

func TestFromIPC(t *testing.T) {
	sc := testutil.OrdersSchema()
	body := testutil.IPCStream(t, sc,
		`[{"id": 1, "customer": null, "amount": 1, "placed_at": 0}]`,
		`[{"id": 2, "customer": null, "amount": null, "placed_at": 0}]`,
	)

	s, err := FromIPC(bytes.NewReader(body), memory.NewGoAllocator())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "customer", "amount", "placed_at"}, s.Columns())
	assert.Equal(t, int64(2), s.NumRows())
	assert.Equal(t, 2, s.NullCount("customer"))
	assert.Equal(t, 1, s.NullCount("amount"))
}

func TestFromIPC_EmptyStream(t *testing.T) {
	body := testutil.IPCStream(t, testutil.OrdersSchema())

	s, err := FromIPC(bytes.NewReader(body), nil)
	require.NoError(t, err)
	assert.Len(t, s.Columns(), 4)
	assert.Equal(t, int64(0), s.NumRows())
}

func TestFromIPC_Garbage(t *testing.T) {
	_, err := FromIPC(bytes.NewReader([]byte("not arrow")), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arrow ipc")
}

func TestFromSchema(t *testing.T) {
	s := FromSchema(testutil.OrdersSchema(), map[string]int{"customer": 4, "unknown": 7})
	assert.Equal(t, 4, s.NullCount("customer"))
	assert.Equal(t, 0, s.NullCount("unknown"))
	assert.NotContains(t, s.Columns(), "unknown")
}

func TestSnapshot_ColumnsIsCopy(t *testing.T) {
	s := FromSchema(testutil.OrdersSchema(), nil)
	cols := s.Columns()
	cols[0] = "mutated"
	assert.Equal(t, "id", s.Columns()[0])
}

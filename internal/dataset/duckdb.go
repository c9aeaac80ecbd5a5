package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// QuoteIdentifier double-quotes a SQL identifier, escaping embedded quotes.
func QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// FileRelation returns a relation expression DuckDB resolves by file
// extension (CSV, Parquet, JSON).
func FileRelation(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}

// OpenDuckDB snapshots a DuckDB relation: a table or view name, a quoted
// file path, or a table function call such as read_parquet('x.parquet').
// Column types come from DESCRIBE and are mapped to the Arrow types DuckDB
// exports. Columns with a type that has no Arrow mapping get a nil type.
func OpenDuckDB(ctx context.Context, db *sql.DB, relation string, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rows, err := db.QueryContext(ctx, "DESCRIBE SELECT * FROM "+relation)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", relation, err)
	}
	defer rows.Close() //nolint:errcheck

	s := newSnapshot(0)
	for rows.Next() {
		var name, typ, null, key, def, extra sql.NullString
		if err := rows.Scan(&name, &typ, &null, &key, &def, &extra); err != nil {
			return nil, fmt.Errorf("scan describe row: %w", err)
		}
		dt, err := ParseDuckDBType(typ.String)
		if err != nil {
			var unsupported *UnsupportedTypeError
			if !errors.As(err, &unsupported) {
				return nil, fmt.Errorf("column %s: %w", name.String, err)
			}
			logger.Debug("no arrow mapping for duckdb type", "column", name.String, "type", typ.String)
			dt = nil
		}
		s.add(name.String, dt, 0)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe %s: %w", relation, err)
	}
	if len(s.names) == 0 {
		return s, nil
	}

	var sb strings.Builder
	sb.WriteString("SELECT count(*)")
	for _, name := range s.names {
		q := QuoteIdentifier(name)
		fmt.Fprintf(&sb, ", count(*) - count(%s)", q)
	}
	sb.WriteString(" FROM ")
	sb.WriteString(relation)

	counts := make([]int64, len(s.names)+1)
	dest := make([]interface{}, len(counts))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := db.QueryRowContext(ctx, sb.String()).Scan(dest...); err != nil {
		return nil, fmt.Errorf("count nulls in %s: %w", relation, err)
	}
	s.rows = counts[0]
	for i, name := range s.names {
		s.nulls[name] = int(counts[i+1])
	}
	logger.Debug("snapshotted duckdb relation", "relation", relation, "columns", len(s.names), "rows", s.rows)
	return s, nil
}

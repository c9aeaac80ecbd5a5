package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tabschema/internal/dataset"
	"tabschema/internal/objstore"
	"tabschema/internal/schema"
	"tabschema/internal/validate"
)

// fileResult is the validation outcome of one data file.
type fileResult struct {
	File   string   `json:"file"`
	Table  string   `json:"table"`
	Valid  bool     `json:"valid"`
	Rows   int64    `json:"rows"`
	Errors []string `json:"errors"`
}

// validationFailedError is returned in strict mode once results have been
// printed, so Execute only has to set the exit code.
type validationFailedError struct {
	failed int
	total  int
}

func (e *validationFailedError) Error() string {
	return fmt.Sprintf("%d of %d file(s) failed validation", e.failed, e.total)
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		schemaURI          string
		tableName          string
		strict             bool
		allowUnknownFields bool
	)

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate data files against a dataset schema",
		Long: "Reads each data file and checks its columns, types and nulls against a table of the schema.\n" +
			"CSV, Parquet and JSON files are read through DuckDB. Arrow IPC streams (.arrow, .arrows, .ipc)\n" +
			"may also be given as s3://, gs://, az:// or abfss:// URIs.\n" +
			"Without --table, each file is checked against the table named after its file stem.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("strict") {
				strict = a.cfg.Strict
			}

			ds, err := a.loadSchema(cmd.Context(), schemaURI, allowUnknownFields)
			if err != nil {
				return err
			}

			// Resolve every table up front so a typo fails before any file is read.
			tables := make([]*schema.TableSchema, len(args))
			for i, file := range args {
				name := tableName
				if name == "" {
					name = fileStem(file)
				}
				t, err := ds.Select(name)
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				tables[i] = t
			}

			v := &fileValidator{store: a.store, app: a}
			defer v.close()

			results := make([]fileResult, len(args))
			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(a.cfg.ValidateConcurrency)
			for i := range args {
				g.Go(func() error {
					res, err := v.validate(gctx, args[i], tables[i], strict)
					if err != nil {
						return err
					}
					results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if !r.Valid {
					failed++
				}
			}

			out := cmd.OutOrStdout()
			if a.output == "json" {
				if err := printJSON(out, map[string]interface{}{
					"dataset": ds.Name,
					"strict":  strict,
					"valid":   failed == 0,
					"results": results,
				}); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{
						statusLabel(out, r.Valid),
						r.File,
						r.Table,
						fmt.Sprintf("%d", r.Rows),
						fmt.Sprintf("%d", len(r.Errors)),
					})
				}
				printTable(out, []string{"status", "file", "table", "rows", "errors"}, rows)
				for _, r := range results {
					if len(r.Errors) == 0 {
						continue
					}
					_, _ = fmt.Fprintf(out, "\n%s (%s):\n", r.File, r.Table)
					for _, e := range r.Errors {
						_, _ = fmt.Fprintf(out, "  - %s\n", e)
					}
				}
			}

			if strict && failed > 0 {
				return &validationFailedError{failed: failed, total: len(results)}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaURI, "schema", "s", "", "Schema document (path, file://, s3://, gs://, az:// or abfss:// URI)")
	cmd.Flags().StringVarP(&tableName, "table", "t", "", "Table to validate every file against (default: file stem)")
	cmd.Flags().BoolVar(&strict, "strict", true, "Exit non-zero on any discrepancy (default from TABSCHEMA_STRICT)")
	cmd.Flags().BoolVar(&allowUnknownFields, "allow-unknown-fields", false, "Allow unknown keys in the schema document")

	return cmd
}

// fileValidator snapshots data files and checks them. The DuckDB handle is
// opened on first use and shared by all files.
type fileValidator struct {
	store objstore.Opener
	app   *app

	once  sync.Once
	db    *sql.DB
	dbErr error
}

func (v *fileValidator) duckDB() (*sql.DB, error) {
	v.once.Do(func() {
		v.db, v.dbErr = sql.Open("duckdb", "")
		if v.dbErr != nil {
			v.dbErr = fmt.Errorf("open duckdb: %w", v.dbErr)
		}
	})
	return v.db, v.dbErr
}

func (v *fileValidator) close() {
	if v.db != nil {
		_ = v.db.Close()
	}
}

func (v *fileValidator) snapshot(ctx context.Context, file string) (*dataset.Snapshot, error) {
	if isIPCFile(file) {
		rc, err := v.store.Open(ctx, file)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		return dataset.FromIPC(rc, nil)
	}

	localPath, err := objstore.LocalPath(file)
	if err != nil {
		return nil, fmt.Errorf("%w (only Arrow IPC files may be remote)", err)
	}
	db, err := v.duckDB()
	if err != nil {
		return nil, err
	}
	return dataset.OpenDuckDB(ctx, db, dataset.FileRelation(localPath), v.app.logger)
}

func (v *fileValidator) validate(ctx context.Context, file string, table *schema.TableSchema, strict bool) (fileResult, error) {
	logger := v.app.logger.With("file", file, "table", table.Name)
	logger.Debug("validating file")

	snap, err := v.snapshot(ctx, file)
	if err != nil {
		return fileResult{}, fmt.Errorf("read %s: %w", file, err)
	}

	res := fileResult{File: file, Table: table.Name, Rows: snap.NumRows(), Errors: []string{}}
	if strict {
		err := validate.ValidateStrict(snap, table, validate.WithLogger(logger))
		var verr *validate.ValidationError
		if errors.As(err, &verr) {
			res.Errors = verr.Errors
		}
	} else {
		res.Errors = validate.Validate(snap, table, validate.WithLogger(logger))
	}
	res.Valid = len(res.Errors) == 0
	return res, nil
}

func isIPCFile(file string) bool {
	switch strings.ToLower(path.Ext(file)) {
	case ".arrow", ".arrows", ".ipc":
		return true
	}
	return false
}

// fileStem returns the base name of file up to its first dot, so both
// orders.csv and orders.csv.gz map to "orders".
func fileStem(file string) string {
	base := path.Base(strings.ReplaceAll(file, "\\", "/"))
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

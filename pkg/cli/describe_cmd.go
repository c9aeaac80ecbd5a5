package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tabschema/internal/schema"
)

func newDescribeCmd(a *app) *cobra.Command {
	var (
		schemaURI          string
		allowUnknownFields bool
	)

	cmd := &cobra.Command{
		Use:   "describe [table]",
		Short: "Show a dataset schema with resolved Arrow types",
		Long:  "Loads a schema document and prints every table, or only the named table, with each column's declared and runtime type.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.loadSchema(cmd.Context(), schemaURI, allowUnknownFields)
			if err != nil {
				return err
			}

			tables := ds.Tables
			if len(args) == 1 {
				t, err := ds.Select(args[0])
				if err != nil {
					return err
				}
				tables = []*schema.TableSchema{t}
			}

			descs := make([]schema.TableDescription, 0, len(tables))
			for _, t := range tables {
				descs = append(descs, schema.Describe(t))
			}

			out := cmd.OutOrStdout()
			if a.output == "json" {
				return printJSON(out, map[string]interface{}{
					"dataset":     ds.Name,
					"description": ds.Description,
					"tables":      descs,
				})
			}

			_, _ = fmt.Fprintf(out, "Dataset: %s\n", ds.Name)
			if ds.Description != "" {
				_, _ = fmt.Fprintf(out, "  %s\n", ds.Description)
			}
			for _, d := range descs {
				_, _ = fmt.Fprintf(out, "\nTable: %s\n", d.Name)
				if d.Description != "" {
					_, _ = fmt.Fprintf(out, "  %s\n", d.Description)
				}
				var rows [][]string
				for _, c := range d.Columns {
					rows = appendColumnRows(rows, c, 0)
				}
				printTable(out, []string{"column", "type", "nullable", "arrow type"}, rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaURI, "schema", "s", "", "Schema document (path, file://, s3://, gs://, az:// or abfss:// URI)")
	cmd.Flags().BoolVar(&allowUnknownFields, "allow-unknown-fields", false, "Allow unknown keys in the schema document")

	return cmd
}

// appendColumnRows flattens a column tree, indenting nested members.
func appendColumnRows(rows [][]string, c schema.ColumnDescription, depth int) [][]string {
	typ := c.Type
	if c.ElementType != "" {
		typ = fmt.Sprintf("%s<%s>", c.Type, c.ElementType)
	}
	rows = append(rows, []string{
		strings.Repeat("  ", depth) + c.Name,
		typ,
		fmt.Sprintf("%t", c.Nullable),
		c.ArrowType,
	})
	for _, child := range c.Fields {
		rows = appendColumnRows(rows, child, depth+1)
	}
	return rows
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

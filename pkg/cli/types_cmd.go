package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"tabschema/internal/schema"
)

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the type names accepted in schema files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prims := schema.PrimitiveTypes()
			aliases := schema.TypeAliases()

			if a.output == "json" {
				types := make([]map[string]string, 0, len(prims)+2)
				for _, p := range prims {
					types = append(types, map[string]string{"name": p.Name, "arrow_type": p.Type.String()})
				}
				types = append(types,
					map[string]string{"name": schema.KindStruct},
					map[string]string{"name": schema.KindList},
				)
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"types":   types,
					"aliases": aliases,
				})
			}

			aliasesOf := make(map[string][]string)
			for alias, canonical := range aliases {
				aliasesOf[canonical] = append(aliasesOf[canonical], alias)
			}
			rows := make([][]string, 0, len(prims)+2)
			for _, p := range prims {
				names := aliasesOf[p.Name]
				sort.Strings(names)
				rows = append(rows, []string{p.Name, p.Type.String(), joinOrDash(names)})
			}
			rows = append(rows,
				[]string{schema.KindStruct, "struct<...>", "-"},
				[]string{schema.KindList, "list<...>", "-"},
			)
			printTable(cmd.OutOrStdout(), []string{"type", "arrow type", "aliases"}, rows)
			return nil
		},
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tabschema/internal/config"
	"tabschema/internal/loader"
	"tabschema/internal/objstore"
	"tabschema/internal/schema"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		var failed *validationFailedError
		switch {
		case errors.As(err, &failed):
			// Results were already printed.
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		case output == "json":
			_ = printJSON(os.Stdout, map[string]interface{}{
				"error": err.Error(),
			})
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// app carries state resolved once in PersistentPreRunE and shared by every
// subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *objstore.Router
	output  string
	envFile string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "tabschema",
		Short:         "Declarative schemas for tabular datasets",
		Long:          "Describe tabular datasets in YAML and validate data files, tables and Arrow streams against them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(a.output); err != nil {
				return err
			}
			if err := config.LoadDotEnv(a.envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
				cfg.LogLevel = f.Value.String()
			}
			a.cfg = cfg
			a.store = objstore.NewRouter(cfg)
			a.logger = cfg.Logger(cmd.ErrOrStderr())
			for _, w := range cfg.Warnings {
				a.logger.Warn(w)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Path to a .env file (missing file is ignored)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(newVersionCmd(a))
	rootCmd.AddCommand(newTypesCmd(a))
	rootCmd.AddCommand(newDescribeCmd(a))
	rootCmd.AddCommand(newValidateCmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	return rootCmd
}

// loadSchema reads the dataset schema at uri through the object store router.
func (a *app) loadSchema(ctx context.Context, uri string, allowUnknown bool) (*schema.DatasetSchema, error) {
	if uri == "" {
		return nil, fmt.Errorf("--schema is required")
	}
	l := loader.New(a.store, loader.Options{
		AllowUnknownFields: allowUnknown,
		Logger:             a.logger,
	})
	return l.Load(ctx, uri)
}

package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tabschema/internal/api"
	"tabschema/internal/middleware"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		schemaURI          string
		listenAddr         string
		allowUnknownFields bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a dataset schema over HTTP",
		Long:  "Loads a schema document and serves table descriptions and Arrow IPC validation until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()

			ds, err := a.loadSchema(ctx, schemaURI, allowUnknownFields)
			if err != nil {
				return err
			}
			if listenAddr != "" {
				a.cfg.ListenAddr = listenAddr
			}
			srv := api.NewServer(ds, a.cfg, a.logger)
			tokens, err := middleware.NewTokenValidator(ctx, a.cfg)
			if err != nil {
				return fmt.Errorf("configure authentication: %w", err)
			}
			if tokens != nil {
				srv.WithTokenValidator(tokens)
			}
			if !a.cfg.AuthEnabled() {
				a.logger.Warn("authentication disabled: set JWT_SECRET, OIDC_ISSUER_URL or API_KEYS to protect /v1")
			}
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&schemaURI, "schema", "s", "", "Schema document (path, file://, s3://, gs://, az:// or abfss:// URI)")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from LISTEN_ADDR, else :8080)")
	cmd.Flags().BoolVar(&allowUnknownFields, "allow-unknown-fields", false, "Allow unknown keys in the schema document")

	return cmd
}

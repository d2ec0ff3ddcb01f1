package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcpmarket/internal/app"
	"mcpmarket/internal/infra/config"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API, MCP endpoint and metrics server",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, a *app.App, _ []string) error {
			cfg := a.Config()
			opts.logger.Info("configuration loaded",
				zap.String("config", opts.configPath),
				zap.String("data", cfg.DataPath),
				zap.Int("markets", len(cfg.Markets)),
			)
			return a.Serve(ctx)
		}),
	}
}

func newValidateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration without opening the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader(opts.logger).Load(cmd.Context(), opts.configPath)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cfg)
			}
			fmt.Printf("config ok: data=%s markets=%d listen=%s\n", cfg.DataPath, len(cfg.Markets), cfg.HTTP.ListenAddress)
			return nil
		},
	}
}

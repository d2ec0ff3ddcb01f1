package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mcpmarket/internal/app"
	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/transfer"
)

func newMarketCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Manage tool markets",
	}
	cmd.AddCommand(
		newMarketListCmd(opts),
		newMarketAddCmd(opts),
		newMarketStatusCmd(opts),
		newMarketDeleteCmd(opts),
		newMarketToolsCmd(opts),
		newMarketImportCmd(opts),
	)
	return cmd
}

func newMarketListCmd(opts *cliOptions) *cobra.Command {
	var name, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List markets, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, a *app.App, _ []string) error {
			markets, err := a.Markets().ListMarkets(ctx, domain.MarketQuery{
				Name:   name,
				Status: domain.MarketStatus(strings.ToUpper(status)),
			})
			if err != nil {
				return err
			}
			return printMarkets(markets, opts.jsonOutput)
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "name substring filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter (ENABLED or DISABLED)")
	return cmd
}

func newMarketAddCmd(opts *cliOptions) *cobra.Command {
	var market domain.Market
	var auth, status string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a market",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, a *app.App, _ []string) error {
			if auth != "" {
				market.AuthConfig = json.RawMessage(auth)
			}
			market.Status = domain.MarketStatus(status)
			saved, err := a.Markets().SaveMarket(ctx, market)
			if err != nil {
				return err
			}
			return printMarket(saved, opts.jsonOutput)
		}),
	}
	cmd.Flags().StringVar(&market.Name, "name", "", "market name")
	cmd.Flags().StringVar(&market.URL, "url", "", "registry endpoint URL")
	cmd.Flags().StringVar(&auth, "auth", "", `auth config JSON, e.g. {"apiKey":"..."}`)
	cmd.Flags().StringVar(&status, "status", "", "initial status (default ENABLED)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newMarketStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <ENABLED|DISABLED>",
		Short: "Enable or disable a market",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(opts, func(ctx context.Context, a *app.App, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			market, err := a.Markets().UpdateMarketStatus(ctx, ids[0], domain.MarketStatus(args[1]))
			if err != nil {
				return err
			}
			return printMarket(market, opts.jsonOutput)
		}),
	}
}

func newMarketDeleteCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a market and its mirrored catalog",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(ctx context.Context, a *app.App, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			deleted, err := a.Markets().DeleteMarket(ctx, ids[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(map[string]bool{"deleted": deleted})
			}
			fmt.Printf("deleted=%t\n", deleted)
			return nil
		}),
	}
}

func newMarketToolsCmd(opts *cliOptions) *cobra.Command {
	var keyword string
	cmd := &cobra.Command{
		Use:   "tools <id>",
		Short: "List the mirrored catalog of a market",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(ctx context.Context, a *app.App, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			entries, err := a.Markets().ListMarketTools(ctx, ids[0], keyword)
			if err != nil {
				return err
			}
			return printEntries(entries, opts.jsonOutput)
		}),
	}
	cmd.Flags().StringVar(&keyword, "keyword", "", "filter on name and description")
	return cmd
}

func newMarketImportCmd(opts *cliOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Upsert markets by name from a TOML, YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := transfer.ReadMarkets(args[0])
			if err != nil {
				return exitError{code: 2, message: err.Error()}
			}
			if dryRun {
				return printImport(result, nil, opts.jsonOutput)
			}
			return withApp(opts, func(ctx context.Context, a *app.App, _ []string) error {
				report, err := a.Markets().ApplySeeds(ctx, result.Markets)
				if err != nil {
					return err
				}
				return printImport(result, &report, opts.jsonOutput)
			})(cmd, args)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without writing")
	return cmd
}

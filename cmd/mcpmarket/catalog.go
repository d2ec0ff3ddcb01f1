package main

import (
	"context"

	"github.com/spf13/cobra"

	"mcpmarket/internal/app"
)

func newSyncCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <marketId>",
		Short: "Mirror a market's remote catalog; pages are paced seconds apart",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(ctx context.Context, a *app.App, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			report, err := a.Markets().RefreshMarket(ctx, ids[0])
			if printErr := printSyncReport(report, opts.jsonOutput); printErr != nil {
				return printErr
			}
			return err
		}),
	}
}

func newPromoteCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <entryId>...",
		Short: "Promote catalog entries to local tools",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(ctx context.Context, a *app.App, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			failed, err := printPromoteResults(a.Promoter().PromoteBatchDetailed(ctx, ids), opts.jsonOutput)
			if err != nil {
				return err
			}
			if failed > 0 {
				return exitSilent(1)
			}
			return nil
		}),
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mcpmarket/internal/app"
	"mcpmarket/internal/domain"
)

func newToolsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage local tools",
	}
	cmd.AddCommand(
		newToolsListCmd(opts),
		newToolsAddCmd(opts),
		newToolsStatusCmd(opts),
		newToolsDeleteCmd(opts),
	)
	return cmd
}

func newToolsListCmd(opts *cliOptions) *cobra.Command {
	var name, kind, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List local tools, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, a *app.App, _ []string) error {
			tools, err := a.Tools().ListTools(ctx, domain.ToolQuery{
				Name:   name,
				Kind:   domain.ToolKind(strings.ToUpper(kind)),
				Status: domain.ToolStatus(strings.ToUpper(status)),
			})
			if err != nil {
				return err
			}
			return printTools(tools, opts.jsonOutput)
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "name substring filter")
	cmd.Flags().StringVar(&kind, "type", "", "type filter (LOCAL or REMOTE)")
	cmd.Flags().StringVar(&status, "status", "", "status filter (ENABLED or DISABLED)")
	return cmd
}

func newToolsAddCmd(opts *cliOptions) *cobra.Command {
	var tool domain.LocalTool
	var kind, configJSON string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a local tool",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, a *app.App, _ []string) error {
			tool.Kind = domain.ToolKind(kind)
			if configJSON != "" {
				tool.Config = json.RawMessage(configJSON)
			}
			saved, err := a.Tools().SaveTool(ctx, tool)
			if err != nil {
				return err
			}
			return printTool(saved, opts.jsonOutput)
		}),
	}
	cmd.Flags().StringVar(&tool.Name, "name", "", "tool name")
	cmd.Flags().StringVar(&tool.Description, "description", "", "tool description")
	cmd.Flags().StringVar(&kind, "type", string(domain.ToolKindLocal), "tool type (LOCAL or REMOTE)")
	cmd.Flags().StringVar(&configJSON, "config-json", "", "tool config JSON")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newToolsStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <ENABLED|DISABLED>",
		Short: "Enable or disable a local tool",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(opts, func(ctx context.Context, a *app.App, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			tool, err := a.Tools().UpdateToolStatus(ctx, ids[0], domain.ToolStatus(args[1]))
			if err != nil {
				return err
			}
			return printTool(tool, opts.jsonOutput)
		}),
	}
}

func newToolsDeleteCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete local tools",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(ctx context.Context, a *app.App, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			deleted, err := a.Tools().DeleteTools(ctx, ids...)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				if deleted == nil {
					deleted = []uint64{}
				}
				return writeJSON(map[string]any{"deleted": deleted})
			}
			fmt.Printf("deleted=%d\n", len(deleted))
			return nil
		}),
	}
}

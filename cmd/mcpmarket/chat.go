package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mcpmarket/internal/app"
)

func newChatCmd(opts *cliOptions) *cobra.Command {
	var sessionID string
	var clearHistory bool
	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Send one message to the configured chat model",
		RunE: withApp(opts, func(ctx context.Context, a *app.App, args []string) error {
			if clearHistory {
				deleted, err := a.Chat().DeleteHistory(ctx, sessionID)
				if err != nil {
					return err
				}
				fmt.Printf("cleared=%t\n", deleted)
				return nil
			}
			reply, err := a.Chat().Generate(ctx, sessionID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(reply)
			}
			fmt.Printf("session=%s\n%s\n", reply.SessionID, reply.Content)
			return nil
		}),
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id; a new one is issued when empty")
	cmd.Flags().BoolVar(&clearHistory, "clear", false, "delete the session history instead of sending")
	return cmd
}

package commands

import (
	"context"
	"fmt"

	"github.com/benvon/productivity-assistant/internal/app"
	"github.com/spf13/cobra"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull calendar events and emails into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, app.Options{ConnectQueue: true}, func(ctx context.Context, deps *app.App) error {
				result := deps.Assistant.Sync(ctx)
				if opts.json {
					return printJSON(cmd.OutOrStdout(), result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d new items (calendar: %d, email: %d)\n",
					result.Total, result.Calendar, result.Email)
				return nil
			})
		},
	}
}

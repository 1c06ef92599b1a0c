package commands

import (
	"context"
	"fmt"

	"github.com/benvon/productivity-assistant/internal/app"
	"github.com/benvon/productivity-assistant/internal/queue"
	"github.com/spf13/cobra"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Maintain the semantic index",
	}
	cmd.AddCommand(newIndexRebuildCmd(opts), newIndexResetCmd(opts))
	return cmd
}

func newIndexRebuildCmd(opts *rootOptions) *cobra.Command {
	var async bool
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Clear the index and re-embed every stored item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, app.Options{ConnectQueue: async}, func(ctx context.Context, deps *app.App) error {
				out := cmd.OutOrStdout()
				if async {
					if deps.Queue == nil {
						return fmt.Errorf("--async needs RABBITMQ_URL")
					}
					if err := queue.NewScheduler(deps.Queue).ScheduleRebuild(ctx); err != nil {
						return err
					}
					fmt.Fprintln(out, "Rebuild scheduled")
					return nil
				}

				result, err := deps.Assistant.RebuildIndex(ctx)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(out, result)
				}
				fmt.Fprintf(out, "Indexed %d items (%d failed)\n", result.Indexed, result.Failed)
				if count, err := deps.Index.Count(ctx); err == nil {
					fmt.Fprintf(out, "Index now holds %d entries\n", count)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "Hand the rebuild to the worker instead of running it here")
	return cmd
}

func newIndexResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every entry from the index without touching the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset the index without --yes")
			}
			return opts.run(cmd, app.Options{}, func(ctx context.Context, deps *app.App) error {
				if err := deps.Index.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Index reset; run 'index rebuild' to restore search")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

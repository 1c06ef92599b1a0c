package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/benvon/productivity-assistant/internal/app"
	"github.com/benvon/productivity-assistant/internal/pipeline"
	"github.com/spf13/cobra"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Find items by meaning",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return opts.run(cmd, app.Options{}, func(ctx context.Context, deps *app.App) error {
				results, err := deps.Assistant.Search(ctx, query, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.json {
					return printJSON(out, results)
				}
				if len(results) == 0 {
					fmt.Fprintln(out, "No matches")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "SCORE\tID\tTYPE\tTITLE")
				for _, res := range results {
					fmt.Fprintf(tw, "%.3f\t%d\t%s\t%s\n", res.Relevance, res.ID, res.Type, res.Title)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", pipeline.DefaultSearchLimit, "Maximum number of results")
	return cmd
}

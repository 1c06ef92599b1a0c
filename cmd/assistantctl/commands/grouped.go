package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/productivity-assistant/internal/app"
	"github.com/benvon/productivity-assistant/internal/timeline"
	"github.com/spf13/cobra"
)

func newGroupedCmd(opts *rootOptions) *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "grouped",
		Short: "Show items grouped into today, tomorrow and upcoming",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			views := []timeline.View{timeline.ViewToday, timeline.ViewTomorrow, timeline.ViewUpcoming}
			if view != "" {
				v, err := timeline.ParseView(view)
				if err != nil {
					return err
				}
				views = []timeline.View{v}
			}

			return opts.run(cmd, app.Options{}, func(ctx context.Context, deps *app.App) error {
				groups, err := deps.Assistant.Grouped(ctx, time.Now())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.json {
					if view != "" {
						return printJSON(out, groups.Bucket(views[0]))
					}
					return printJSON(out, groups)
				}
				for i, v := range views {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "== %s ==\n", v)
					if err := printItems(out, groups.Bucket(v)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "Only show one group (today, tomorrow, upcoming)")
	return cmd
}

package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/benvon/productivity-assistant/internal/app"
	"github.com/benvon/productivity-assistant/internal/pipeline"
	"github.com/spf13/cobra"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [text...]",
		Short: "Extract items from free text and store them",
		Long:  "Extract tasks, notes and reminders from free text. With no arguments, or \"-\", the text is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no input provided")
			}

			return opts.run(cmd, app.Options{ConnectQueue: true}, func(ctx context.Context, deps *app.App) error {
				results, err := deps.Assistant.Parse(ctx, text)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.json {
					return printJSON(out, results)
				}
				if err := printItems(out, pipeline.Items(results)); err != nil {
					return err
				}
				for _, res := range results {
					if !res.Indexed {
						fmt.Fprintf(out, "Item %d was stored but is not searchable yet: %v\n", res.Item.ID, res.IndexErr)
					}
				}
				return nil
			})
		},
	}
}

func inputText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

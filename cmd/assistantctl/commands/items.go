package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/benvon/productivity-assistant/internal/app"
	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/benvon/productivity-assistant/internal/validation"
	"github.com/spf13/cobra"
)

func newItemsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List and manage stored items",
	}
	cmd.AddCommand(
		newItemsListCmd(opts),
		newItemsGetCmd(opts),
		newItemsCompleteCmd(opts),
		newItemsDeleteCmd(opts),
	)
	return cmd
}

func newItemsListCmd(opts *rootOptions) *cobra.Command {
	var itemType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *models.ItemType
			if itemType != "" {
				if err := validation.ValidateItemType(itemType); err != nil {
					return err
				}
				t := models.ItemType(itemType)
				filter = &t
			}
			return opts.run(cmd, app.Options{}, func(ctx context.Context, deps *app.App) error {
				items, err := deps.Assistant.List(ctx, filter)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), items)
				}
				return printItems(cmd.OutOrStdout(), items)
			})
		},
	}
	cmd.Flags().StringVarP(&itemType, "type", "t", "", "Only list items of this type (task, note, reminder)")
	return cmd
}

func newItemsGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, app.Options{}, func(ctx context.Context, deps *app.App) error {
				item, err := deps.Assistant.Get(ctx, id)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), item)
				}
				return printItem(cmd.OutOrStdout(), item)
			})
		},
	}
}

func newItemsCompleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark an item as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, app.Options{}, func(ctx context.Context, deps *app.App) error {
				item, err := deps.Assistant.Complete(ctx, id)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), item)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Completed item %d: %s\n", item.ID, item.Title)
				return nil
			})
		},
	}
}

func newItemsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item and remove it from search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, app.Options{}, func(ctx context.Context, deps *app.App) error {
				if err := deps.Assistant.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %d\n", id)
				return nil
			})
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", raw)
	}
	return id, nil
}

// Package commands implements the assistantctl command tree
package commands

import (
	"context"
	"fmt"

	"github.com/benvon/productivity-assistant/internal/app"
	"github.com/benvon/productivity-assistant/internal/config"
	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	verbose bool
	json    bool
}

// NewRootCmd builds the assistantctl root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "assistantctl",
		Short:         "Command line client for the productivity assistant",
		Long:          "Parse notes into items, sync calendar and email, search and maintain the semantic index.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline events to stderr")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Print results as JSON")

	cmd.AddCommand(
		newParseCmd(opts),
		newSyncCmd(opts),
		newItemsCmd(opts),
		newGroupedCmd(opts),
		newSearchCmd(opts),
		newIndexCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// run loads configuration, connects the dependencies and hands them to fn
func (o *rootOptions) run(cmd *cobra.Command, appOpts app.Options, fn func(ctx context.Context, deps *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := zap.NewNop()
	if o.verbose {
		log, err = logger.New(logger.Options{Debug: cfg.DebugMode, Development: true})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = logger.Sync(log) }()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	deps, err := app.New(ctx, cfg, log, appOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close connections: %v\n", err)
		}
	}()

	return fn(ctx, deps)
}

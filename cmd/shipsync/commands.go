package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions, f syncFactories) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one sync pass over the database and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			_, err = RunSync(ctx, cfg, f, dryRun)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "fetch and build updates but do not write rows or publish events")
	return cmd
}

func newServeCmd(opts *rootOptions, f syncFactories) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Sync on an interval and expose ops HTTP (and optional gRPC health)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			err = RunServe(ctx, cfg, f, serveHooks{})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

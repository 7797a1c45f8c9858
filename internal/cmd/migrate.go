package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(c *cli) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withApp(cmd.Context(), storageOnly, func(ctx context.Context, d deps) error {
					if err := d.Migrator.Up(ctx); err != nil {
						return err
					}
					return d.Catalog.CreateTables(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withApp(cmd.Context(), storageOnly, func(ctx context.Context, d deps) error {
					return d.Migrator.Down(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withApp(cmd.Context(), storageOnly, func(ctx context.Context, d deps) error {
					return d.Migrator.Status(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withApp(cmd.Context(), storageOnly, func(ctx context.Context, d deps) error {
					v, err := d.Migrator.Version(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(c.out, v)
					return err
				})
			},
		},
	)
	return migrateCmd
}

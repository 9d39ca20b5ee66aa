package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lumina-backend/internal/app"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending catalog migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				applied, err := a.Migrate()
				if err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog schema is up to date")
					return nil
				}
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
				}
				return nil
			})
		},
	}
}

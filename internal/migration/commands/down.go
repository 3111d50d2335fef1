package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"socialhub/internal/migration"
)

func DownCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Revert the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open(cmd.Context())
			if err != nil {
				return err
			}

			reverted, err := migration.NewMigrator(db, nil).Down(cmd.Context())
			if err != nil {
				return err
			}
			if reverted == nil {
				return fmt.Errorf("no migrations to revert")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully reverted migration: %s\n", reverted.Name)
			return nil
		},
	}
}

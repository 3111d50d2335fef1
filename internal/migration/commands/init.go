package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"socialhub/internal/migration"
)

func InitCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize migration tracking table in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open(cmd.Context())
			if err != nil {
				return err
			}

			if err := migration.NewMigrator(db, nil).EnsureVersionTable(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Migration system initialized successfully")
			return nil
		},
	}
}

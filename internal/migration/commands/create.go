package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"socialhub/internal/migration/generator"
)

func CreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			migrationsDir, err := validateMigrationsPath(getMigrationsDir())
			if err != nil {
				return fmt.Errorf("failed to validate migrations directory: %v", err)
			}

			filePath, err := generator.NewGenerator(migrationsDir).CreateMigration(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created migration: %s\n", filePath)
			return nil
		},
	}
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"socialhub/internal/migration/generator"
	modelparser "socialhub/internal/migration/parser"
)

func GenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [name] [model...]",
		Short: "Generate a migration that creates tables for the given models",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			parser, err := modelparser.NewModelParser(nil)
			if err != nil {
				return fmt.Errorf("failed to create model parser: %v", err)
			}

			tables, err := parser.Lookup(args[1:]...)
			if err != nil {
				return fmt.Errorf("failed to parse models: %v", err)
			}

			migrationsDir, err := validateMigrationsPath(getMigrationsDir())
			if err != nil {
				return fmt.Errorf("failed to validate migrations directory: %v", err)
			}

			filePath, err := generator.NewGenerator(migrationsDir).GenerateCreateTables(name, tables)
			if err != nil {
				return fmt.Errorf("failed to generate migration: %v", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Generated migration: %s\n", filePath)
			return nil
		},
	}
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"socialhub/internal/migration"
	"socialhub/internal/migration/file"
	"socialhub/internal/migration/parser"
)

func ValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			registered := migration.Registered()
			if err := migration.Validate(registered); err != nil {
				return fmt.Errorf("validation failed: %v", err)
			}

			if checkFiles, _ := cmd.Flags().GetBool("files"); checkFiles {
				if err := file.NewMigrationLoader(getMigrationsDir()).CheckRegistered(registered); err != nil {
					return fmt.Errorf("validation failed: %v", err)
				}
			}

			p, err := parser.NewModelParser(nil)
			if err != nil {
				return fmt.Errorf("validation failed: %v", err)
			}
			if _, err := p.Parse(); err != nil {
				return fmt.Errorf("validation failed: %v", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "All migrations are valid")
			return nil
		},
	}

	cmd.Flags().Bool("files", false, "Also check that every file in MIGRATIONS_PATH is registered")

	return cmd
}

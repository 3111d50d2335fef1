package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"socialhub/internal/migration"
	"socialhub/internal/migration/diff"
	"socialhub/internal/migration/parser"
	"socialhub/internal/schema"
)

func StatusCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			drift, _ := cmd.Flags().GetBool("drift")
			out := cmd.OutOrStdout()

			db, err := open(cmd.Context())
			if err != nil {
				return err
			}

			statuses, err := migration.NewMigrator(db, nil).Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get applied migrations: %w", err)
			}

			fmt.Fprintf(out, "%-16s  %-30s  %-8s\n", "Version", "Name", "Status")
			for _, s := range statuses {
				status := "Pending"
				if s.Applied {
					status = "Applied"
				}
				fmt.Fprintf(out, "%-16s  %-30s  %-8s\n", s.Migration.Version, s.Migration.Name, status)
			}

			if !drift {
				return nil
			}

			p, err := parser.NewModelParser(nil)
			if err != nil {
				return err
			}
			parsed, err := p.Parse()
			if err != nil {
				return err
			}
			tables := make([]*schema.Table, 0, len(parsed))
			for _, t := range parsed {
				tables = append(tables, t)
			}

			result, err := diff.NewSchemaComparer(db).Compare(cmd.Context(), tables)
			if err != nil {
				return err
			}
			if result.IsEmpty() {
				fmt.Fprintln(out, "\nDatabase schema matches the models")
				return nil
			}
			fmt.Fprintln(out, "\nSchema drift:")
			for _, t := range result.TablesToCreate {
				fmt.Fprintf(out, "- missing table %s\n", t)
			}
			for _, td := range result.TablesToModify {
				for _, c := range td.ColumnsToAdd {
					fmt.Fprintf(out, "- missing column %s.%s\n", td.Table, c)
				}
				for _, i := range td.IndexesToAdd {
					fmt.Fprintf(out, "- missing index %s on %s\n", i, td.Table)
				}
			}
			return nil
		},
	}

	cmd.Flags().Bool("drift", false, "Compare the live schema with the registered models")

	return cmd
}

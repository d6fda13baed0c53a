package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
)

func newValidateCmd(schemasDir *string) *cobra.Command {
	var (
		systemID string
		dialect  string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check binding completeness for a system and dialect",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := schema.Load(*schemasDir)
			if err != nil {
				return err
			}
			if dialect == "" {
				sys, err := registry.System(systemID)
				if err != nil {
					return err
				}
				dialect = sys.DefaultDialect
			}

			gaps, err := registry.ValidateSystem(systemID, dialect)
			if err != nil {
				return err
			}

			if outputFormat(cmd) == "json" {
				msgs := make([]string, len(gaps))
				for i, g := range gaps {
					msgs[i] = g.String()
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"system_id": systemID,
					"dialect":   dialect,
					"complete":  len(gaps) == 0,
					"gaps":      msgs,
				})
			}

			if len(gaps) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "System %s is complete for %s.\n", systemID, dialect)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "System %s has %d binding gap(s) for %s:\n", systemID, len(gaps), dialect)
			for _, g := range gaps {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", g.String())
			}
			return fmt.Errorf("binding validation failed")
		},
	}

	cmd.Flags().StringVar(&systemID, "system", "jp_tiptop_erp", "target system id")
	cmd.Flags().StringVar(&dialect, "dialect", "", "SQL dialect (defaults to the system's datasource dialect)")
	return cmd
}

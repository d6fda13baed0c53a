package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DanielChung520/AI-Box-sub013/internal/dict"
	"github.com/DanielChung520/AI-Box-sub013/internal/nlq"
	"github.com/DanielChung520/AI-Box-sub013/internal/resolver"
	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
	"github.com/DanielChung520/AI-Box-sub013/internal/sqlgen"
)

func newSQLCmd(schemasDir *string) *cobra.Command {
	var (
		systemID string
		dialect  string
	)

	cmd := &cobra.Command{
		Use:   "sql [query]",
		Short: "Generate dialect SQL for a query without executing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := schema.Load(*schemasDir)
			if err != nil {
				return err
			}
			sys, err := registry.System(systemID)
			if err != nil {
				return err
			}
			if dialect == "" {
				dialect = sys.DefaultDialect
			}

			query := strings.Join(args, " ")
			parsed := nlq.New(sys, dict.New()).Parse(query)
			if parsed.IsUnknown() {
				return fmt.Errorf("could not match %q to a known intent", query)
			}

			intent, err := sys.GetIntent(parsed.Intent)
			if err != nil {
				return err
			}
			ast, err := resolver.BuildAST(sys, dialect, intent, parsed.Params)
			if err != nil {
				return err
			}

			adapter, err := sqlgen.NewFactory().Create(dialect, sqlgen.Config{})
			if err != nil {
				return err
			}
			sqlText, err := sqlgen.Generate(adapter, ast)
			if err != nil {
				return err
			}

			if outputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"intent":  parsed.Intent,
					"dialect": adapter.DialectName(),
					"sql":     sqlText,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), sqlText)
			return nil
		},
	}

	cmd.Flags().StringVar(&systemID, "system", "jp_tiptop_erp", "target system id")
	cmd.Flags().StringVar(&dialect, "dialect", "", "SQL dialect (defaults to the system's datasource dialect)")
	return cmd
}

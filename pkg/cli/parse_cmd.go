package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DanielChung520/AI-Box-sub013/internal/dict"
	"github.com/DanielChung520/AI-Box-sub013/internal/nlq"
	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
)

func newParseCmd(schemasDir *string) *cobra.Command {
	var systemID string

	cmd := &cobra.Command{
		Use:   "parse [query]",
		Short: "Parse a natural-language query into an intent",
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

			query := strings.Join(args, " ")
			parsed := nlq.New(sys, dict.New()).Parse(query)

			if outputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"intent":     parsed.Intent,
					"confidence": parsed.Confidence,
					"params":     parsed.Params,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Intent:     %s\n", parsed.Intent)
			fmt.Fprintf(cmd.OutOrStdout(), "Confidence: %.2f\n", parsed.Confidence)
			for k, v := range parsed.Params {
				fmt.Fprintf(cmd.OutOrStdout(), "Param:      %s = %s\n", k, v)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&systemID, "system", "jp_tiptop_erp", "target system id")
	return cmd
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DanielChung520/AI-Box-sub013/internal/dict"
)

func newDictCmd() *cobra.Command {
	var dictPath string

	cmd := &cobra.Command{
		Use:   "dict [code]",
		Short: "Look up a domain code in the code dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := dict.New()
			if dictPath == "" {
				dictPath = os.Getenv("NLQ_DICT_PATH")
			}
			if dictPath != "" {
				d = dict.Load(dictPath)
			}

			v := d.ValidateCode(args[0])
			if outputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), v)
			}

			if !v.Valid {
				return fmt.Errorf("unknown code %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Code:     %s\n", v.Info.Code)
			fmt.Fprintf(cmd.OutOrStdout(), "Meaning:  %s\n", v.Info.Meaning)
			fmt.Fprintf(cmd.OutOrStdout(), "Category: %s\n", v.Info.Category)
			if v.Info.DefaultTable != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Table:    %s.%s\n", v.Info.DefaultTable, v.Info.DefaultField)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dictPath, "dict", "", "code dictionary JSON file (defaults to built-in table)")
	return cmd
}

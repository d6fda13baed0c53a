// Package cli implements the nlq command-line interface: offline parsing,
// SQL generation, and schema validation against a local schema directory.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "dev"

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if outputFormat(rootCmd) == "json" {
			_ = printJSON(os.Stdout, map[string]interface{}{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		schemasDir string
		output     string
	)

	rootCmd := &cobra.Command{
		Use:           "nlq",
		Short:         "Natural-language query resolver CLI",
		Long:          "Parse natural-language queries, generate dialect SQL, and validate schema bindings offline.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("schemas") {
				if v := os.Getenv("NLQ_SCHEMAS_DIR"); v != "" {
					schemasDir = v
				}
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	// Accept snake_case spellings of multi-word flags.
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	flags.StringVar(&schemasDir, "schemas", "schemas", "schema directory holding systems.yaml")
	flags.StringVarP(&output, "output", "o", "text", "output format: text or json")

	rootCmd.AddCommand(newParseCmd(&schemasDir))
	rootCmd.AddCommand(newResolveCmd(&schemasDir))
	rootCmd.AddCommand(newSQLCmd(&schemasDir))
	rootCmd.AddCommand(newValidateCmd(&schemasDir))
	rootCmd.AddCommand(newDictCmd())

	return rootCmd
}

// outputFormat reads the persistent --output flag, defaulting to text.
func outputFormat(cmd *cobra.Command) string {
	v, err := cmd.Root().PersistentFlags().GetString("output")
	if err != nil || v == "" {
		return "text"
	}
	return v
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

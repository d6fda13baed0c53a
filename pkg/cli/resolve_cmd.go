package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/DanielChung520/AI-Box-sub013/internal/dict"
	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
	"github.com/DanielChung520/AI-Box-sub013/internal/events"
	"github.com/DanielChung520/AI-Box-sub013/internal/resolver"
	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
	"github.com/DanielChung520/AI-Box-sub013/internal/session"
	"github.com/DanielChung520/AI-Box-sub013/internal/sqlgen"
)

func newResolveCmd(schemasDir *string) *cobra.Command {
	var (
		systemID string
		dialect  string
		execute  bool
		dbPath   string
	)

	cmd := &cobra.Command{
		Use:   "resolve [query]",
		Short: "Run the full pipeline for a query, optionally executing the SQL",
		Long: "Runs parse, context resolution, AST build, and SQL generation in one " +
			"shot. With --execute the generated SQL runs against a local DuckDB " +
			"database; without it only the SQL is produced.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := schema.Load(*schemasDir)
			if err != nil {
				return err
			}

			var db *sql.DB
			if execute {
				db, err = sql.Open("duckdb", dbPath)
				if err != nil {
					return fmt.Errorf("open duckdb: %w", err)
				}
				defer db.Close()
			}
			factory := sqlgen.NewFactory()
			provider := func(d string) (sqlgen.SQLAdapter, error) {
				cfg := sqlgen.Config{}
				if strings.EqualFold(d, "duckdb") {
					cfg.DB = db
				}
				adapter, err := factory.Create(strings.ToLower(d), cfg)
				if err != nil {
					return nil, err
				}
				if !execute {
					return dryRunAdapter{adapter}, nil
				}
				return adapter, nil
			}

			logger := slog.New(slog.DiscardHandler)
			sessions := session.NewManager(session.NewMemoryStore(time.Hour), logger)
			res := resolver.New(registry, dict.New(), sessions,
				events.NewEmitter(logger, 64), provider, logger)

			resp, err := res.Resolve(cmd.Context(), resolver.Request{
				SystemID: systemID,
				Dialect:  dialect,
				Query:    strings.Join(args, " "),
			})
			if err != nil {
				return err
			}

			if outputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "intent: %s (confidence %.2f)\n", resp.Intent, resp.Confidence)
			fmt.Fprintf(out, "sql: %s\n", resp.SQL)
			if execute && resp.Result != nil {
				fmt.Fprintf(out, "rows: %d\n", resp.Result.RowCount)
				for _, row := range resp.Result.Rows {
					fmt.Fprintf(out, "  %v\n", row)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&systemID, "system", "jp_tiptop_erp", "target system id")
	cmd.Flags().StringVar(&dialect, "dialect", "", "SQL dialect (defaults to the system's datasource dialect)")
	cmd.Flags().BoolVar(&execute, "execute", false, "execute the generated SQL against a local DuckDB database")
	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB database path for --execute (empty: in-memory)")
	return cmd
}

// dryRunAdapter generates SQL through the wrapped adapter but skips
// execution, so the pipeline completes without a live connection.
type dryRunAdapter struct {
	sqlgen.SQLAdapter
}

func (d dryRunAdapter) Execute(_ context.Context, sqlQuery string) (*domain.SQLResult, error) {
	return &domain.SQLResult{Success: true, SQLQuery: sqlQuery}, nil
}

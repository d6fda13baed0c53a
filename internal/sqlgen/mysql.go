package sqlgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// MySQLAdapter renders SQL for MySQL with backtick-quoted identifiers.
type MySQLAdapter struct {
	cfg Config
}

// NewMySQLAdapter creates a MySQL adapter.
func NewMySQLAdapter(cfg Config) *MySQLAdapter {
	return &MySQLAdapter{cfg: cfg}
}

func (a *MySQLAdapter) DialectName() string { return "mysql" }

// QuoteIdent backtick-quotes an identifier.
func (a *MySQLAdapter) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (a *MySQLAdapter) TableSource(table, schema string) string {
	if schema == "" {
		schema = a.cfg.Schema
	}
	if schema == "" {
		return a.QuoteIdent(table)
	}
	return a.QuoteIdent(schema) + "." + a.QuoteIdent(table)
}

func (a *MySQLAdapter) Cast(expr, typ string) string {
	return fmt.Sprintf("CAST(%s AS %s)", expr, typ)
}

func (a *MySQLAdapter) Concat(args ...string) string {
	return "CONCAT(" + strings.Join(args, ", ") + ")"
}

func (a *MySQLAdapter) Like(field, pattern string) string {
	return fmt.Sprintf("%s LIKE %s", field, quoteLiteral(pattern))
}

func (a *MySQLAdapter) Sum(field, alias string) string {
	return aliased(fmt.Sprintf("SUM(%s)", field), alias)
}

func (a *MySQLAdapter) Count(field, alias string) string {
	return aliased(fmt.Sprintf("COUNT(%s)", field), alias)
}

func (a *MySQLAdapter) Join(left, right, leftField, rightField, joinType string) string {
	return fmt.Sprintf("%s %s JOIN %s ON %s = %s", left, normalizeJoinType(joinType), right, leftField, rightField)
}

func (a *MySQLAdapter) Limit(n int) string {
	return fmt.Sprintf("LIMIT %d", n)
}

// Execute runs the query on the configured MySQL connection.
func (a *MySQLAdapter) Execute(ctx context.Context, sqlQuery string) (*domain.SQLResult, error) {
	if a.cfg.DB == nil {
		return &domain.SQLResult{Success: false, SQLQuery: sqlQuery, Error: "mysql connection not configured"}, nil
	}
	return runQuery(ctx, a.cfg.DB, sqlQuery, a.cfg.QueryTimeout)
}

var (
	_ SQLAdapter       = (*MySQLAdapter)(nil)
	_ identifierQuoter = (*MySQLAdapter)(nil)
)

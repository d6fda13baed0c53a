package sqlgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// OracleAdapter renders SQL for Oracle. Oracle has no native LIMIT, so
// Limit renders a ROWNUM predicate that the generator folds into WHERE.
type OracleAdapter struct {
	cfg Config
}

// NewOracleAdapter creates an Oracle adapter.
func NewOracleAdapter(cfg Config) *OracleAdapter {
	return &OracleAdapter{cfg: cfg}
}

func (a *OracleAdapter) DialectName() string { return "oracle" }

// TableSource renders SCHEMA.TABLE uppercased. An explicit schema argument
// overrides the configured default.
func (a *OracleAdapter) TableSource(table, schema string) string {
	if schema == "" {
		schema = a.cfg.Schema
	}
	if schema == "" {
		return strings.ToUpper(table)
	}
	return strings.ToUpper(schema) + "." + strings.ToUpper(table)
}

func (a *OracleAdapter) Cast(expr, typ string) string {
	return fmt.Sprintf("CAST(%s AS %s)", expr, typ)
}

func (a *OracleAdapter) Concat(args ...string) string {
	return strings.Join(args, " || ")
}

func (a *OracleAdapter) Like(field, pattern string) string {
	return fmt.Sprintf("%s LIKE %s", field, quoteLiteral(pattern))
}

func (a *OracleAdapter) Sum(field, alias string) string {
	return aliased(fmt.Sprintf("SUM(%s)", field), alias)
}

func (a *OracleAdapter) Count(field, alias string) string {
	return aliased(fmt.Sprintf("COUNT(%s)", field), alias)
}

func (a *OracleAdapter) Join(left, right, leftField, rightField, joinType string) string {
	return fmt.Sprintf("%s %s JOIN %s ON %s = %s", left, normalizeJoinType(joinType), right, leftField, rightField)
}

// Limit renders a ROWNUM predicate. Callers must not assume the limit is
// a trailing clause; LimitIsPredicate signals the placement.
func (a *OracleAdapter) Limit(n int) string {
	return fmt.Sprintf("ROWNUM <= %d", n)
}

// LimitIsPredicate marks the ROWNUM limit as a WHERE predicate.
func (a *OracleAdapter) LimitIsPredicate() bool { return true }

// Execute runs the query on the configured Oracle connection.
func (a *OracleAdapter) Execute(ctx context.Context, sqlQuery string) (*domain.SQLResult, error) {
	if a.cfg.DB == nil {
		return &domain.SQLResult{Success: false, SQLQuery: sqlQuery, Error: "oracle connection not configured"}, nil
	}
	return runQuery(ctx, a.cfg.DB, sqlQuery, a.cfg.QueryTimeout)
}

var (
	_ SQLAdapter     = (*OracleAdapter)(nil)
	_ limitPredicate = (*OracleAdapter)(nil)
)

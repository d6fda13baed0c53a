package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// bareIdent matches a plain column/table identifier, as opposed to a
// composed expression like SUM(INAG008).
var bareIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// supported comparison operators for WHERE conditions.
var allowedOperators = map[string]bool{
	"=": true, "!=": true, "<>": true,
	">": true, "<": true, ">=": true, "<=": true,
	"LIKE": true,
}

// Generate renders a dialect-neutral AST into SQL text using only the
// adapter's primitives. Any construct the adapter cannot express is a
// loud generation failure, never silent degradation to another dialect.
func Generate(adapter SQLAdapter, ast *domain.QueryAST) (string, error) {
	if adapter == nil {
		return "", fmt.Errorf("adapter is required")
	}
	if ast == nil {
		return "", fmt.Errorf("query AST is required")
	}
	if len(ast.Select) == 0 {
		return "", fmt.Errorf("query AST has an empty select list")
	}
	if len(ast.FromTables) == 0 {
		return "", fmt.Errorf("query AST has no from tables")
	}

	quote := identQuoter(adapter)

	selectParts := make([]string, 0, len(ast.Select))
	for _, item := range ast.Select {
		expr := item.Expr
		if expr == "" {
			return "", fmt.Errorf("select item has an empty expression")
		}
		if bareIdent.MatchString(expr) {
			expr = quote(expr)
		}
		selectParts = append(selectParts, aliased(expr, item.Alias))
	}

	from, err := renderFrom(adapter, ast, quote)
	if err != nil {
		return "", err
	}

	conds := make([]string, 0, len(ast.WhereConditions)+1)
	for _, c := range ast.WhereConditions {
		rendered, err := renderCondition(adapter, c, quote)
		if err != nil {
			return "", err
		}
		conds = append(conds, rendered)
	}

	// Dialects without a trailing LIMIT fold the limit into WHERE.
	limitInWhere := false
	if ast.Limit > 0 {
		if lp, ok := adapter.(limitPredicate); ok && lp.LimitIsPredicate() {
			conds = append(conds, adapter.Limit(ast.Limit))
			limitInWhere = true
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selectParts, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(from)

	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if len(ast.GroupBy) > 0 {
		cols := make([]string, len(ast.GroupBy))
		for i, col := range ast.GroupBy {
			cols[i] = quote(col)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(cols, ", "))
	}

	if len(ast.OrderBy) > 0 {
		cols := make([]string, len(ast.OrderBy))
		for i, col := range ast.OrderBy {
			cols[i] = quoteOrderTerm(col, quote)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(cols, ", "))
	}

	if ast.Limit > 0 && !limitInWhere {
		sb.WriteString(" ")
		sb.WriteString(adapter.Limit(ast.Limit))
	}

	return sb.String(), nil
}

// renderFrom composes the from clause: a single table source, or the
// declared joins folded left to right.
func renderFrom(adapter SQLAdapter, ast *domain.QueryAST, quote func(string) string) (string, error) {
	expr := adapter.TableSource(ast.FromTables[0], "")
	if len(ast.FromTables) == 1 {
		return expr, nil
	}

	if len(ast.Joins) < len(ast.FromTables)-1 {
		return "", fmt.Errorf("%d from tables but only %d join clauses", len(ast.FromTables), len(ast.Joins))
	}

	joined := map[string]bool{ast.FromTables[0]: true}
	for _, j := range ast.Joins {
		if !joined[j.LeftTable] && !joined[j.RightTable] {
			return "", fmt.Errorf("join %s-%s connects to no table already in the from clause", j.LeftTable, j.RightTable)
		}
		next, nextField, prevField := j.RightTable, j.RightColumn, j.LeftColumn
		if joined[j.RightTable] {
			next, nextField, prevField = j.LeftTable, j.LeftColumn, j.RightColumn
		}
		expr = adapter.Join(expr, adapter.TableSource(next, ""), quote(prevField), quote(nextField), j.JoinType)
		joined[next] = true
	}

	for _, table := range ast.FromTables {
		if !joined[table] {
			return "", fmt.Errorf("table %s has no join path to the from clause", table)
		}
	}
	return expr, nil
}

// renderCondition renders one WHERE predicate through the adapter.
func renderCondition(adapter SQLAdapter, c domain.Condition, quote func(string) string) (string, error) {
	if c.Column == "" {
		return "", fmt.Errorf("where condition has an empty column")
	}
	op := strings.ToUpper(strings.TrimSpace(c.Operator))
	if op == "" {
		op = "="
	}
	if !allowedOperators[op] {
		return "", fmt.Errorf("unsupported operator %q on column %s", c.Operator, c.Column)
	}

	col := c.Column
	if bareIdent.MatchString(col) {
		col = quote(col)
	}
	if op == "LIKE" {
		return adapter.Like(col, c.Value), nil
	}
	return fmt.Sprintf("%s %s %s", col, op, quoteLiteral(c.Value)), nil
}

// identQuoter returns the adapter's identifier quoting, or identity.
func identQuoter(adapter SQLAdapter) func(string) string {
	if q, ok := adapter.(identifierQuoter); ok {
		return q.QuoteIdent
	}
	return func(s string) string { return s }
}

// quoteOrderTerm quotes "COL" or "COL DESC" order terms.
func quoteOrderTerm(term string, quote func(string) string) string {
	parts := strings.Fields(term)
	if len(parts) == 0 {
		return term
	}
	if bareIdent.MatchString(parts[0]) {
		parts[0] = quote(parts[0])
	}
	return strings.Join(parts, " ")
}

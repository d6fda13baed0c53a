package resolver

import (
	"fmt"
	"strings"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
)

// BuildAST lowers a validated intent plus its extracted parameters into a
// dialect-neutral query AST. All physical names come from the system's
// bindings for the requested dialect; concept names never leak into the AST
// except lowercased as projection aliases.
func BuildAST(sys *schema.System, dialect string, intent domain.IntentDefinition, params map[string]string) (*domain.QueryAST, error) {
	if len(intent.Output.Metrics) == 0 && len(intent.Output.Dimensions) == 0 {
		return nil, domain.ErrResolve(domain.CodeBuildAST, "intent %q projects nothing", intent.Name)
	}

	ast := &domain.QueryAST{}
	tables := &tableSet{}
	aggregated := false

	// Dimensions first so identifying columns lead the projection.
	for _, concept := range intent.Output.Dimensions {
		b, err := sys.GetBinding(concept, dialect)
		if err != nil {
			return nil, asBindingError(err)
		}
		ast.Select = append(ast.Select, domain.SelectItem{Expr: b.Column, Alias: strings.ToLower(concept)})
		ast.GroupBy = append(ast.GroupBy, b.Column)
		tables.add(b.Table)
	}

	for _, concept := range intent.Output.Metrics {
		b, err := sys.GetBinding(concept, dialect)
		if err != nil {
			return nil, asBindingError(err)
		}
		expr, isAgg := aggExpr(b.Aggregation, b.Column)
		aggregated = aggregated || isAgg
		ast.Select = append(ast.Select, domain.SelectItem{Expr: expr, Alias: strings.ToLower(concept)})
		tables.add(b.Table)
	}

	// Filters render in the intent's declared order so the same request
	// always produces the same SQL text.
	for _, concept := range intent.Input.Filters {
		value, ok := params[concept]
		if !ok || value == "" {
			continue
		}
		b, err := sys.GetBinding(concept, dialect)
		if err != nil {
			return nil, asBindingError(err)
		}
		op := b.Operator
		if op == "" {
			op = "="
		}
		ast.WhereConditions = append(ast.WhereConditions, domain.Condition{
			Column:   b.Column,
			Operator: op,
			Value:    value,
		})
		tables.add(b.Table)
	}

	// GROUP BY only exists alongside an actual aggregate.
	if !aggregated {
		ast.GroupBy = nil
	}

	ast.FromTables = tables.ordered
	if len(ast.FromTables) > 1 {
		joins, err := joinPath(sys, ast.FromTables)
		if err != nil {
			return nil, err
		}
		ast.Joins = joins
	}
	return ast, nil
}

// aggExpr renders the aggregate wrapper for a measure binding. NONE and
// unrecognized aggregations project the bare column.
func aggExpr(agg domain.Aggregation, column string) (string, bool) {
	switch agg {
	case domain.AggSum, domain.AggCount, domain.AggAvg, domain.AggMin, domain.AggMax:
		return fmt.Sprintf("%s(%s)", agg, column), true
	default:
		return column, false
	}
}

// joinPath selects the declared relationships that connect the used tables,
// ordered so each join touches a table already connected. A table with no
// path to the rest is a build failure, caught here rather than at SQL
// generation time so the error carries a stable code.
func joinPath(sys *schema.System, tables []string) ([]domain.JoinClause, error) {
	used := make(map[string]bool, len(tables))
	for _, t := range tables {
		used[t] = true
	}

	connected := map[string]bool{tables[0]: true}
	var joins []domain.JoinClause
	remaining := append([]domain.JoinClause(nil), sys.Relationships()...)

	for len(joins) < len(tables)-1 {
		progressed := false
		for i, rel := range remaining {
			if !used[rel.LeftTable] || !used[rel.RightTable] {
				continue
			}
			if connected[rel.LeftTable] == connected[rel.RightTable] {
				continue // both already connected, or neither reachable yet
			}
			joins = append(joins, rel)
			connected[rel.LeftTable] = true
			connected[rel.RightTable] = true
			remaining = append(remaining[:i], remaining[i+1:]...)
			progressed = true
			break
		}
		if !progressed {
			for _, t := range tables {
				if !connected[t] {
					return nil, domain.ErrResolve(domain.CodeBuildAST, "no declared relationship joins table %s to the query", t)
				}
			}
			break
		}
	}
	return joins, nil
}

// asBindingError reclassifies a schema lookup failure as a binding
// resolution failure while keeping the lookup detail in the message.
func asBindingError(err error) error {
	if re, ok := err.(*domain.ResolveError); ok {
		return domain.ErrResolve(domain.CodeResolveBindings, "%s", re.Message)
	}
	return domain.ErrResolve(domain.CodeResolveBindings, "%s", err.Error())
}

// tableSet keeps first-seen insertion order with O(1) dedup.
type tableSet struct {
	seen    map[string]bool
	ordered []string
}

func (s *tableSet) add(table string) {
	if table == "" {
		return
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[table] {
		return
	}
	s.seen[table] = true
	s.ordered = append(s.ordered, table)
}

// Package sqlgen renders dialect-neutral query ASTs into executable SQL
// through a closed SQLAdapter capability interface, and executes the
// result against the bound engine.
//
// Adding a dialect means implementing SQLAdapter and registering it with
// the Factory; no other code path constructs SQL strings directly.
package sqlgen

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// SQLAdapter is the capability surface every dialect must answer.
type SQLAdapter interface {
	DialectName() string
	TableSource(table, schema string) string
	Cast(expr, typ string) string
	Concat(args ...string) string
	Like(field, pattern string) string
	Sum(field, alias string) string
	Count(field, alias string) string
	Join(left, right, leftField, rightField, joinType string) string
	Limit(n int) string
	Execute(ctx context.Context, sqlQuery string) (*domain.SQLResult, error)
}

// limitPredicate is implemented by adapters whose Limit renders a WHERE
// predicate (Oracle ROWNUM) instead of a trailing clause.
type limitPredicate interface {
	LimitIsPredicate() bool
}

// identifierQuoter is implemented by adapters that quote identifiers
// (MySQL backticks). Others pass identifiers through untouched.
type identifierQuoter interface {
	QuoteIdent(name string) string
}

// S3Config holds credentials and layout for DuckDB-over-S3 execution.
type S3Config struct {
	Bucket    string
	KeyID     string
	Secret    string
	Endpoint  string
	Region    string
	URLStyle  string // "path" or "vhost"
	PathRoot  string // object prefix tables live under, default "raw/v1"
	SecretName string
}

// Config carries everything an adapter may need at construction. Adapters
// must stay cheap to create: anything expensive (credential registration,
// connection checks) happens lazily on first Execute.
type Config struct {
	// DB is the engine connection. nil is allowed at construction;
	// Execute then fails with a connection error.
	DB *sql.DB
	// Schema qualifies table names for dialects that need it (Oracle).
	Schema string
	// S3 configures DuckDB parquet-over-S3 table sources.
	S3 S3Config
	// QueryTimeout bounds a single Execute call. Zero means no bound
	// beyond the caller's context.
	QueryTimeout time.Duration
}

// Builder constructs one adapter from a Config.
type Builder func(cfg Config) (SQLAdapter, error)

// Factory is the single registry through which dialect adapters are
// created. Create errors on unknown dialect names; nothing else in the
// system resolves dialect names.
type Factory struct {
	builders map[string]Builder
}

// NewFactory returns a factory with the built-in dialects registered:
// duckdb, oracle, mysql.
func NewFactory() *Factory {
	f := &Factory{builders: make(map[string]Builder)}
	f.mustRegister("duckdb", func(cfg Config) (SQLAdapter, error) { return NewDuckDBAdapter(cfg), nil })
	f.mustRegister("oracle", func(cfg Config) (SQLAdapter, error) { return NewOracleAdapter(cfg), nil })
	f.mustRegister("mysql", func(cfg Config) (SQLAdapter, error) { return NewMySQLAdapter(cfg), nil })
	return f
}

// Register adds a dialect builder. Registering a duplicate name errors.
func (f *Factory) Register(dialect string, b Builder) error {
	name := strings.ToLower(strings.TrimSpace(dialect))
	if name == "" {
		return fmt.Errorf("dialect name is required")
	}
	if _, exists := f.builders[name]; exists {
		return fmt.Errorf("dialect %q is already registered", name)
	}
	f.builders[name] = b
	return nil
}

func (f *Factory) mustRegister(dialect string, b Builder) {
	if err := f.Register(dialect, b); err != nil {
		panic(err)
	}
}

// Create builds an adapter for the named dialect.
func (f *Factory) Create(dialect string, cfg Config) (SQLAdapter, error) {
	b, ok := f.builders[strings.ToLower(strings.TrimSpace(dialect))]
	if !ok {
		return nil, fmt.Errorf("unknown SQL dialect %q (registered: %s)", dialect, strings.Join(f.Dialects(), ", "))
	}
	return b(cfg)
}

// Dialects lists the registered dialect names, sorted.
func (f *Factory) Dialects() []string {
	names := make([]string, 0, len(f.builders))
	for name := range f.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// quoteLiteral renders a string literal with single-quote escaping.
func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// aliased renders "expr AS alias" when alias is non-empty.
func aliased(expr, alias string) string {
	if alias == "" {
		return expr
	}
	return expr + " AS " + alias
}

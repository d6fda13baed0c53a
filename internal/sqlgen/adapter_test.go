package sqlgen

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

func TestFactory_UnknownDialect(t *testing.T) {
	_, err := NewFactory().Create("postgres", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown SQL dialect")
	assert.Contains(t, err.Error(), "duckdb")
}

func TestFactory_CaseInsensitive(t *testing.T) {
	adapter, err := NewFactory().Create(" DuckDB ", Config{})
	require.NoError(t, err)
	assert.Equal(t, "duckdb", adapter.DialectName())
}

func TestFactory_DuplicateRegistration(t *testing.T) {
	f := NewFactory()
	err := f.Register("mysql", func(cfg Config) (SQLAdapter, error) { return NewMySQLAdapter(cfg), nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestFactory_Dialects(t *testing.T) {
	assert.Equal(t, []string{"duckdb", "mysql", "oracle"}, NewFactory().Dialects())
}

func TestExecute_NoConnection(t *testing.T) {
	for _, dialect := range NewFactory().Dialects() {
		t.Run(dialect, func(t *testing.T) {
			adapter, err := NewFactory().Create(dialect, Config{})
			require.NoError(t, err)

			result, err := adapter.Execute(context.Background(), "SELECT 1")
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Contains(t, result.Error, "not configured")
			assert.Equal(t, "SELECT 1", result.SQLQuery)
		})
	}
}

// openInventoryDB seeds an in-memory table shaped like the on-hand
// inventory feed so Execute tests can run real scans.
func openInventoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE INAG_T (INAG001 TEXT, INAG002 TEXT, INAG008 REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO INAG_T VALUES
		('RM01-005', 'W01', 120),
		('RM01-005', 'W03', 80),
		('FG02-110', 'W01', 340)`)
	require.NoError(t, err)
	return db
}

func TestExecute_ScansRowsOfDicts(t *testing.T) {
	adapter := NewMySQLAdapter(Config{DB: openInventoryDB(t)})

	ast := &domain.QueryAST{
		Select: []domain.SelectItem{
			{Expr: "INAG001", Alias: "part_no"},
			{Expr: "SUM(INAG008)", Alias: "total_qty"},
		},
		FromTables:      []string{"INAG_T"},
		WhereConditions: []domain.Condition{{Column: "INAG001", Operator: "=", Value: "RM01-005"}},
		GroupBy:         []string{"INAG001"},
	}
	sqlQuery, err := Generate(adapter, ast)
	require.NoError(t, err)

	result, err := adapter.Execute(context.Background(), sqlQuery)
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	require.Equal(t, 1, result.RowCount)
	assert.Equal(t, "RM01-005", result.Rows[0]["part_no"])
	assert.EqualValues(t, 200, result.Rows[0]["total_qty"])
	assert.Equal(t, sqlQuery, result.SQLQuery)
}

func TestExecute_EmptyResultIsSuccess(t *testing.T) {
	adapter := NewMySQLAdapter(Config{DB: openInventoryDB(t)})

	result, err := adapter.Execute(context.Background(),
		"SELECT INAG001 FROM INAG_T WHERE INAG002 = 'W99'")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.RowCount)
	assert.Empty(t, result.Rows)
}

func TestExecute_BackendErrorIsNotGoError(t *testing.T) {
	adapter := NewMySQLAdapter(Config{DB: openInventoryDB(t)})

	result, err := adapter.Execute(context.Background(), "SELECT nope FROM no_such_table")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

package sqlgen

import (
	"context"
	"database/sql"
	"time"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// runQuery executes sqlQuery on db with an optional timeout and scans the
// rows into the row-of-dicts SQLResult shape. Backend failures come back
// as success=false with the raw driver error text attached; classifying
// that text is the caller's job.
func runQuery(ctx context.Context, db *sql.DB, sqlQuery string, timeout time.Duration) (*domain.SQLResult, error) {
	if db == nil {
		return &domain.SQLResult{
			Success:  false,
			SQLQuery: sqlQuery,
			Error:    "no database connection configured",
		}, nil
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return &domain.SQLResult{Success: false, SQLQuery: sqlQuery, Error: err.Error()}, nil
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return &domain.SQLResult{Success: false, SQLQuery: sqlQuery, Error: err.Error()}, nil
	}

	out := []map[string]interface{}{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return &domain.SQLResult{Success: false, SQLQuery: sqlQuery, Error: err.Error()}, nil
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			// Byte slices become strings for JSON serialization.
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return &domain.SQLResult{Success: false, SQLQuery: sqlQuery, Error: err.Error()}, nil
	}

	return &domain.SQLResult{
		Success:  true,
		Rows:     out,
		RowCount: len(out),
		SQLQuery: sqlQuery,
	}, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/sqlguard"
)

// Engine runs accepted statements against a PostgreSQL database. Every
// execution happens inside a read-only transaction, so even a statement the
// validator wrongly accepted cannot mutate data. MaxRows > 0 caps the result
// by wrapping the statement in a LIMIT subselect.
type Engine struct {
	db      *sql.DB
	MaxRows int
}

func NewEngine(handle *sql.DB) *Engine {
	return &Engine{db: handle}
}

func (e *Engine) Execute(ctx context.Context, verdict sqlguard.Verdict) (query.Result, error) {
	if !verdict.Accepted {
		panic("query/postgres: engine invoked with a rejected verdict")
	}
	if strings.TrimSpace(verdict.Statement) == "" {
		return query.Result{}, fmt.Errorf("statement is required")
	}

	start := time.Now()
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return query.Result{}, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sqlText := verdict.Statement
	if e.MaxRows > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, e.MaxRows)
	}

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result, err := scanRows(rows)
	if err != nil {
		return query.Result{}, err
	}
	if err := rows.Close(); err != nil {
		return query.Result{}, fmt.Errorf("close rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return query.Result{}, fmt.Errorf("commit read-only transaction: %w", err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func scanRows(rows *sql.Rows) (query.Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return query.Result{Columns: columns, Rows: resultRows}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/askdb/askdb/internal/schema"
)

type Introspector struct {
	db *sql.DB
}

func NewIntrospector(handle *sql.DB) *Introspector {
	return &Introspector{db: handle}
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", schema.ErrCatalogUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scan table name: %v", schema.ErrCatalogUnavailable, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate tables: %v", schema.ErrCatalogUnavailable, err)
	}
	return names, nil
}

func (i *Introspector) DescribeTable(ctx context.Context, name string) ([]schema.Column, error) {
	names, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if !containsExact(names, name) {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownTable, name)
	}

	rows, err := i.db.QueryContext(ctx,
		`SELECT c.column_name, c.data_type, c.is_nullable = 'NO',
		        EXISTS (
		          SELECT 1 FROM information_schema.key_column_usage k
		          JOIN information_schema.table_constraints tc
		            ON tc.constraint_name = k.constraint_name AND tc.table_schema = k.table_schema
		          WHERE tc.constraint_type = 'PRIMARY KEY'
		            AND k.table_schema = c.table_schema
		            AND k.table_name = c.table_name
		            AND k.column_name = c.column_name
		        )
		 FROM information_schema.columns c
		 WHERE c.table_schema = 'public' AND c.table_name = $1
		 ORDER BY c.ordinal_position`, name)
	if err != nil {
		return nil, fmt.Errorf("%w: describe %q: %v", schema.ErrCatalogUnavailable, name, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]schema.Column, 0)
	for rows.Next() {
		var column schema.Column
		if err := rows.Scan(&column.Name, &column.Type, &column.NotNull, &column.PrimaryKey); err != nil {
			return nil, fmt.Errorf("%w: scan column of %q: %v", schema.ErrCatalogUnavailable, name, err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate columns of %q: %v", schema.ErrCatalogUnavailable, name, err)
	}
	return columns, nil
}

func containsExact(names []string, name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}
	return false
}

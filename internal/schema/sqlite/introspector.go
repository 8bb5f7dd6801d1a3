package sqlite

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
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
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

// DescribeTable first checks name against the live catalog so that an
// attacker-controlled identifier can never reach the pragma lookup.
func (i *Introspector) DescribeTable(ctx context.Context, name string) ([]schema.Column, error) {
	names, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if !containsExact(names, name) {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownTable, name)
	}

	rows, err := i.db.QueryContext(ctx,
		`SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, name)
	if err != nil {
		return nil, fmt.Errorf("%w: describe %q: %v", schema.ErrCatalogUnavailable, name, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]schema.Column, 0)
	for rows.Next() {
		var (
			column  schema.Column
			notNull int
			pk      int
		)
		if err := rows.Scan(&column.Name, &column.Type, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("%w: scan column of %q: %v", schema.ErrCatalogUnavailable, name, err)
		}
		column.NotNull = notNull != 0
		column.PrimaryKey = pk != 0
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

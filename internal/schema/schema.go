// Package schema defines the read-only catalog contract used to ground
// SQL generation. Implementations only ever observe the database's system
// catalog; nothing in this package can reach table contents.
package schema

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownTable is returned by DescribeTable when the name is not a
	// current catalog entry. The check is exact and case-sensitive.
	ErrUnknownTable = errors.New("schema: unknown table")

	// ErrCatalogUnavailable wraps failures to read the system catalog
	// itself (missing file, corrupt database, lost connection).
	ErrCatalogUnavailable = errors.New("schema: catalog unavailable")
)

type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null,omitempty"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
}

type Table struct {
	Name    string   `json:"table_name"`
	Columns []Column `json:"columns"`
}

type Introspector interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, name string) ([]Column, error)
}

// Snapshot builds a full schema context: every catalog table with its
// column descriptors, in catalog order. Consumers treat the result as a
// read-only value; it is rebuilt per request.
func Snapshot(ctx context.Context, introspector Introspector) ([]Table, error) {
	names, err := introspector.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		columns, err := introspector.DescribeTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("describe table %q: %w", name, err)
		}
		tables = append(tables, Table{Name: name, Columns: columns})
	}
	return tables, nil
}

// TableNames projects a snapshot back to its name list.
func TableNames(tables []Table) []string {
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.Name)
	}
	return names
}

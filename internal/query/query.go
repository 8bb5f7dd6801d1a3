// Package query defines the execution side of the gateway: an Engine runs a
// statement the validator has already accepted and nothing else. Engines add
// their own storage-level read-only barrier underneath the validator, so a
// validator bug alone can never mutate data.
package query

import (
	"context"
	"time"

	"github.com/askdb/askdb/internal/sqlguard"
)

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// RowMaps projects the result into the ordered row-map shape of the answer
// contract. Column order is preserved separately in Columns.
func (r Result) RowMaps() []map[string]any {
	rows := make([]map[string]any, 0, len(r.Rows))
	for _, values := range r.Rows {
		row := make(map[string]any, len(r.Columns))
		for i, column := range r.Columns {
			if i < len(values) {
				row[column] = values[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Engine executes an accepted verdict. Implementations panic when handed a
// rejected verdict: that is a wiring defect in the caller, not a runtime
// condition to recover from.
type Engine interface {
	Execute(ctx context.Context, verdict sqlguard.Verdict) (Result, error)
}

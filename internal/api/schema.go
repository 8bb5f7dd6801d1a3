package api

import (
	"errors"
	"net/http"

	"github.com/askdb/askdb/internal/schema"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Introspector == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTROSPECTOR_MISSING", "schema introspector is not configured", false)
		return
	}

	tables, err := schema.Snapshot(r.Context(), deps.Introspector)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_UNAVAILABLE", "database schema is unavailable", true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func handleDescribeTable(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Introspector == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTROSPECTOR_MISSING", "schema introspector is not configured", false)
		return
	}

	name := r.PathValue("table")
	columns, err := deps.Introspector.DescribeTable(r.Context(), name)
	if err != nil {
		if errors.Is(err, schema.ErrUnknownTable) {
			writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table not found: "+name, false)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_UNAVAILABLE", "database schema is unavailable", true)
		return
	}
	writeJSON(w, http.StatusOK, schema.Table{Name: name, Columns: columns})
}

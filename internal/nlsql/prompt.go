package nlsql

import (
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/schema"
)

// systemPrompt renders the translation instructions with the live schema
// embedded. The prompt asks for a structured JSON envelope so unanswerable
// questions come back tagged instead of as invented SQL.
func systemPrompt(tables []schema.Table) string {
	var b strings.Builder
	b.WriteString("You are an expert SQL analyst. Translate natural language questions into precise SQL SELECT queries based on the database schema below.\n\n")
	b.WriteString("## Database Schema\n")
	b.WriteString(renderSchemaContext(tables))
	b.WriteString("\n\n## Rules\n")
	b.WriteString("1. ONLY use tables and columns that exist in the schema above; never invent tables or columns.\n")
	b.WriteString("2. Infer table relationships from column names (foreign keys) and use appropriate JOINs.\n")
	b.WriteString("3. Use aliases for readability (e.g. COUNT(*) AS total_count).\n")
	b.WriteString("4. Use ROUND() to limit decimal results to 2 decimal places.\n")
	b.WriteString("5. If a question asks for \"top N\", use ORDER BY ... DESC LIMIT N.\n")
	b.WriteString("6. Prefer LEFT JOIN when looking for records without matches.\n")
	b.WriteString("7. Emit exactly one SELECT statement. Never emit DDL or DML.\n")
	b.WriteString("8. If the question cannot be answered from this schema, set is_answerable to false.\n")
	b.WriteString("\n## Output Format\n")
	b.WriteString("Respond with a single JSON object and nothing else:\n")
	b.WriteString(`{"is_answerable": true or false, "sql": "the SELECT query, empty if unanswerable", "explanation": "why it is unanswerable, empty otherwise"}`)
	b.WriteString("\n")
	return b.String()
}

// renderSchemaContext lists every table with its columns, marking primary
// keys and NOT NULL constraints so the model can infer join paths.
func renderSchemaContext(tables []schema.Table) string {
	parts := make([]string, 0, len(tables))
	for _, table := range tables {
		var b strings.Builder
		fmt.Fprintf(&b, "### Table: %s\n", table.Name)
		for _, column := range table.Columns {
			fmt.Fprintf(&b, "    - %s: %s", column.Name, column.Type)
			if column.PrimaryKey {
				b.WriteString(" (PRIMARY KEY)")
			}
			if column.NotNull {
				b.WriteString(" NOT NULL")
			}
			b.WriteString("\n")
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}

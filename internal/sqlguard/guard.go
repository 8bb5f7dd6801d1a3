// Package sqlguard decides whether a model-generated SQL string may reach
// the database. Validate is a pure function over its inputs so the gate can
// be tested exhaustively without any database; it accepts or refuses a
// statement verbatim and never rewrites it.
package sqlguard

import (
	"fmt"
	"strings"
)

type Code string

const (
	CodeEmptyStatement   Code = "EMPTY_STATEMENT"
	CodeMultiStatement   Code = "MULTI_STATEMENT"
	CodeNotASelect       Code = "NOT_A_SELECT"
	CodeDangerousKeyword Code = "DANGEROUS_KEYWORD"
)

// denylist keywords are matched case-insensitively on whole tokens across
// the entire raw input, comments included: a keyword hidden in a comment
// that a downstream engine might still interpret is treated as hostile.
var denylist = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE",
	"TRUNCATE", "ATTACH", "DETACH", "PRAGMA", "VACUUM", "REPLACE",
}

// Verdict is the gate's single outcome. When Accepted is true, Statement
// holds the normalized text (trimmed, trailing semicolons stripped) and
// UnknownTables carries any FROM/JOIN identifiers that did not resolve
// against the supplied catalog names; unresolved names are advisory only
// and left for the engine to complain about. Keyword is set only for
// CodeDangerousKeyword rejections.
type Verdict struct {
	Accepted      bool
	Statement     string
	Code          Code
	Detail        string
	Keyword       string
	UnknownTables []string
}

// Validate runs the ordered gates and short-circuits at the first failure.
// The denylist runs before the statement-kind gate so that a mutating
// statement is named for what it is (DANGEROUS_KEYWORD) instead of the
// vaguer NOT_A_SELECT. knownTables may be nil, which skips the advisory
// table-reference check.
func Validate(sqlText string, knownTables []string) Verdict {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return rejected(CodeEmptyStatement, "statement is empty")
	}

	if idx := strings.Index(trimmed, ";"); idx >= 0 && strings.TrimSpace(trimmed[idx+1:]) != "" {
		return rejected(CodeMultiStatement, "statement contains multiple statements")
	}

	normalized := stripTrailingSemicolons(trimmed)
	if normalized == "" {
		return rejected(CodeEmptyStatement, "statement is empty")
	}

	for _, keyword := range denylist {
		if containsToken(sqlText, keyword) {
			return Verdict{
				Code:    CodeDangerousKeyword,
				Detail:  fmt.Sprintf("statement contains forbidden keyword %s", keyword),
				Keyword: keyword,
			}
		}
	}

	leading := leadingKeyword(normalized)
	switch leading {
	case "SELECT":
	case "WITH":
		if !containsToken(normalized, "SELECT") {
			return rejected(CodeNotASelect, "WITH clause does not lead to a SELECT")
		}
	default:
		return rejected(CodeNotASelect, fmt.Sprintf("statement starts with %q, only SELECT is allowed", leading))
	}

	return Verdict{
		Accepted:      true,
		Statement:     normalized,
		UnknownTables: unresolvedTableRefs(normalized, knownTables),
	}
}

func rejected(code Code, detail string) Verdict {
	return Verdict{Code: code, Detail: detail}
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// leadingKeyword returns the first word of the statement in upper case,
// skipping whitespace and leading comments (both -- and /* */ forms).
func leadingKeyword(sqlText string) string {
	rest := sqlText
	for {
		rest = strings.TrimLeft(rest, " \t\r\n")
		switch {
		case strings.HasPrefix(rest, "--"):
			if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
				rest = rest[idx+1:]
				continue
			}
			return ""
		case strings.HasPrefix(rest, "/*"):
			if idx := strings.Index(rest, "*/"); idx >= 0 {
				rest = rest[idx+2:]
				continue
			}
			return ""
		}
		break
	}

	end := 0
	for end < len(rest) && isTokenByte(rest[end]) {
		end++
	}
	return strings.ToUpper(rest[:end])
}

// containsToken reports whether keyword occurs in sqlText as a whole token:
// case-insensitive, bounded by non-identifier characters or string edges.
// A keyword embedded in a longer identifier (dropdown_id) does not match.
func containsToken(sqlText, keyword string) bool {
	upper := strings.ToUpper(sqlText)
	keyword = strings.ToUpper(keyword)
	for start := 0; ; {
		idx := strings.Index(upper[start:], keyword)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(keyword)
		beforeOK := idx == 0 || !isTokenByte(upper[idx-1])
		afterOK := end == len(upper) || !isTokenByte(upper[end])
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isTokenByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}

// unresolvedTableRefs extracts the identifier following each FROM or JOIN
// keyword and reports the ones that do not match a catalog name. Matching
// is case-insensitive, the way both engines resolve identifiers. This is a
// best effort over tokens, not a parse: subqueries and expressions are
// skipped, and nothing here ever causes a rejection.
func unresolvedTableRefs(sqlText string, knownTables []string) []string {
	if len(knownTables) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(knownTables))
	for _, name := range knownTables {
		known[strings.ToLower(name)] = struct{}{}
	}

	tokens := tokenize(sqlText)
	var unknown []string
	seen := map[string]struct{}{}
	for i := 0; i+1 < len(tokens); i++ {
		upper := strings.ToUpper(tokens[i])
		if upper != "FROM" && upper != "JOIN" {
			continue
		}
		candidate := strings.Trim(tokens[i+1], `"`)
		if candidate == "" || candidate == "(" || strings.EqualFold(candidate, "SELECT") {
			continue
		}
		lower := strings.ToLower(candidate)
		if _, ok := known[lower]; ok {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		unknown = append(unknown, candidate)
	}
	return unknown
}

func tokenize(sqlText string) []string {
	tokens := make([]string, 0, 16)
	current := strings.Builder{}
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for i := 0; i < len(sqlText); i++ {
		b := sqlText[i]
		if isTokenByte(b) || b == '"' || b == '.' {
			current.WriteByte(b)
			continue
		}
		flush()
		if b == '(' {
			tokens = append(tokens, "(")
		}
	}
	flush()
	return tokens
}

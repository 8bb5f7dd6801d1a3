// Package nlsql turns natural-language questions into candidate SQL using an
// LLM provider. Providers share one contract: report whether they can serve
// at all, and translate a question against a schema context. Translation is
// advisory only; every candidate statement still goes through the validator
// before execution.
package nlsql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/schema"
)

type Request struct {
	Question string
	Tables   []schema.Table
}

// Result is the structured translation outcome. Answerable false means the
// provider judged the question outside the schema; Explanation carries its
// reason and SQL is empty.
type Result struct {
	Answerable  bool
	SQL         string
	Explanation string
	Provider    string
	Model       string
}

// Provider is a single LLM backend. Available must be cheap for key-gated
// providers (a config check) and bounded for probed ones. Remediation is the
// operator hint shown when no provider can serve.
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Remediation() string
	Translate(ctx context.Context, req Request) (Result, error)
}

// structuredResponse mirrors the JSON object every provider is prompted to
// emit.
type structuredResponse struct {
	IsAnswerable bool   `json:"is_answerable"`
	SQL          string `json:"sql"`
	Explanation  string `json:"explanation"`
}

// parseStructuredContent decodes a provider's raw completion. Models
// occasionally wrap the JSON in a markdown fence or skip the envelope and
// return bare SQL; both shapes are accepted.
func parseStructuredContent(content, provider, model string) (Result, error) {
	trimmed := stripMarkdownFence(content)
	if trimmed == "" {
		return Result{}, fmt.Errorf("model returned an empty completion")
	}

	var parsed structuredResponse
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		// Not the structured envelope; accept bare SQL.
		return Result{
			Answerable: true,
			SQL:        trimmed,
			Provider:   provider,
			Model:      model,
		}, nil
	}

	result := Result{
		Answerable:  parsed.IsAnswerable,
		SQL:         strings.TrimSpace(parsed.SQL),
		Explanation: strings.TrimSpace(parsed.Explanation),
		Provider:    provider,
		Model:       model,
	}
	if result.Answerable && result.SQL == "" {
		return Result{}, fmt.Errorf("model marked the question answerable but returned no SQL")
	}
	return result, nil
}

func stripMarkdownFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}

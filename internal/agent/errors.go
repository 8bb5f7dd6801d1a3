package agent

import "fmt"

// Kind classifies an orchestration failure. The HTTP edge maps kinds to
// status codes; the kind never depends on which provider or engine produced
// the failure.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnanswerable Kind = "unanswerable"
	KindExecution    Kind = "execution"
	KindCatalog      Kind = "catalog"
	KindNoProvider   Kind = "no_provider"
	KindUpstream     Kind = "upstream"
	KindTimeout      Kind = "timeout"
	KindInternal     Kind = "internal"
)

const (
	CodeEmptyQuestion      = "EMPTY_QUESTION"
	CodeUnanswerable       = "UNANSWERABLE"
	CodeQueryFailed        = "QUERY_EXECUTION_FAILED"
	CodeCatalogUnavailable = "CATALOG_UNAVAILABLE"
	CodeNoProvider         = "NO_PROVIDER_AVAILABLE"
	CodeUpstream           = "UPSTREAM_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeInternal           = "INTERNAL"
)

// Error is the agent's failure contract. Message is safe to return to
// callers; the wrapped error may carry upstream detail that is logged but
// never surfaced.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

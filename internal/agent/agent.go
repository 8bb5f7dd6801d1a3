// Package agent orchestrates a single question end to end: resolve an LLM
// provider, snapshot the schema, translate, validate, execute, and project
// chart data. Every failure is classified into the error taxonomy so the
// HTTP edge maps it without inspecting provider or engine internals.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdb/askdb/internal/nlsql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/schema"
	"github.com/askdb/askdb/internal/sqlguard"
)

// translateAttempts bounds how often the resolved provider is retried before
// the selector is asked to re-probe.
const translateAttempts = 2

type Config struct {
	Introspector    schema.Introspector
	Selector        *nlsql.Selector
	Engine          query.Engine
	Logger          *slog.Logger
	ProviderTimeout time.Duration
	QueryTimeout    time.Duration
}

type Agent struct {
	introspector    schema.Introspector
	selector        *nlsql.Selector
	engine          query.Engine
	logger          *slog.Logger
	providerTimeout time.Duration
	queryTimeout    time.Duration
}

func New(cfg Config) (*Agent, error) {
	if cfg.Introspector == nil {
		return nil, fmt.Errorf("introspector is required")
	}
	if cfg.Selector == nil {
		return nil, fmt.Errorf("selector is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	providerTimeout := cfg.ProviderTimeout
	if providerTimeout <= 0 {
		providerTimeout = 30 * time.Second
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	return &Agent{
		introspector:    cfg.Introspector,
		selector:        cfg.Selector,
		engine:          cfg.Engine,
		logger:          logger,
		providerTimeout: providerTimeout,
		queryTimeout:    queryTimeout,
	}, nil
}

// Answer is the full response contract for one question.
type Answer struct {
	RequestID string           `json:"request_id"`
	Question  string           `json:"question"`
	SQL       string           `json:"sql"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"results"`
	Chart     ChartData        `json:"chart_data"`
	Provider  string           `json:"provider"`
	Model     string           `json:"model"`
}

func (a *Agent) Answer(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	requestID := uuid.NewString()
	logger := a.logger.With(slog.String("request_id", requestID))

	if question == "" {
		return Answer{}, &Error{Kind: KindValidation, Code: CodeEmptyQuestion, Message: "question is required"}
	}
	observability.IncrementQuestion()

	// Resolve the provider before touching the database: with no provider
	// configured the request must fail without side effects.
	provider, err := a.selector.Resolve(ctx)
	if err != nil {
		var noProvider *nlsql.NoProviderError
		if errors.As(err, &noProvider) {
			return Answer{}, &Error{Kind: KindNoProvider, Code: CodeNoProvider, Message: err.Error(), Err: err}
		}
		return Answer{}, &Error{Kind: KindInternal, Code: CodeInternal, Message: "resolve provider", Err: err}
	}

	tables, err := schema.Snapshot(ctx, a.introspector)
	if err != nil {
		logger.Error("schema snapshot failed", slog.String("error", err.Error()))
		return Answer{}, &Error{Kind: KindCatalog, Code: CodeCatalogUnavailable, Message: "database schema is unavailable", Err: err}
	}

	translation, err := a.translate(ctx, logger, provider, nlsql.Request{Question: question, Tables: tables})
	if err != nil {
		return Answer{}, err
	}

	if !translation.Answerable {
		observability.IncrementUnanswerable()
		reason := translation.Explanation
		if reason == "" {
			reason = "The question cannot be answered with the available schema."
		}
		message := fmt.Sprintf("%s Available tables: %s.", reason, strings.Join(schema.TableNames(tables), ", "))
		logger.Info("question unanswerable", slog.String("provider", translation.Provider))
		return Answer{}, &Error{Kind: KindUnanswerable, Code: CodeUnanswerable, Message: message}
	}

	verdict := sqlguard.Validate(translation.SQL, schema.TableNames(tables))
	if !verdict.Accepted {
		observability.IncrementRejectedStatement(string(verdict.Code))
		logger.Warn("generated statement rejected",
			slog.String("code", string(verdict.Code)),
			slog.String("provider", translation.Provider),
		)
		return Answer{}, &Error{Kind: KindValidation, Code: string(verdict.Code), Message: verdict.Detail}
	}
	if len(verdict.UnknownTables) > 0 {
		logger.Warn("statement references unknown tables",
			slog.String("tables", strings.Join(verdict.UnknownTables, ", ")),
		)
	}

	queryCtx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()
	result, err := a.engine.Execute(queryCtx, verdict)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Answer{}, &Error{Kind: KindTimeout, Code: CodeTimeout, Message: "query execution timed out", Err: err}
		}
		return Answer{}, &Error{Kind: KindExecution, Code: CodeQueryFailed, Message: err.Error(), Err: err}
	}
	observability.ObserveQuery(result.Duration, len(result.Rows))

	observability.IncrementAnswer()
	logger.Info("question answered",
		slog.String("provider", translation.Provider),
		slog.Int("rows", len(result.Rows)),
		slog.Duration("query_duration", result.Duration),
	)
	return Answer{
		RequestID: requestID,
		Question:  question,
		SQL:       verdict.Statement,
		Columns:   result.Columns,
		Rows:      result.RowMaps(),
		Chart:     BuildChartData(result),
		Provider:  translation.Provider,
		Model:     translation.Model,
	}, nil
}

// translate calls the provider with a bounded retry. After the final attempt
// fails the selector re-probes so subsequent requests can fall through to
// the next provider in priority order.
func (a *Agent) translate(ctx context.Context, logger *slog.Logger, provider nlsql.Provider, req nlsql.Request) (nlsql.Result, error) {
	var lastErr error
	for attempt := 1; attempt <= translateAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, a.providerTimeout)
		start := time.Now()
		result, err := provider.Translate(attemptCtx, req)
		cancel()
		observability.ObserveTranslate(provider.Name(), time.Since(start))
		if err == nil {
			return result, nil
		}
		lastErr = err
		observability.IncrementProviderFailure(provider.Name())
		logger.Warn("provider translation failed",
			slog.String("provider", provider.Name()),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	if _, err := a.selector.Reprobe(ctx); err != nil {
		logger.Warn("provider re-probe found no provider")
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return nlsql.Result{}, &Error{Kind: KindTimeout, Code: CodeTimeout, Message: "SQL generation timed out", Err: lastErr}
	}
	return nlsql.Result{}, &Error{
		Kind:    KindUpstream,
		Code:    CodeUpstream,
		Message: "SQL generation provider failed",
		Err:     lastErr,
	}
}

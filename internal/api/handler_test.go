package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/agent"
	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/schema"
)

type fakeAsker struct {
	answer agent.Answer
	err    error
}

func (f *fakeAsker) Answer(context.Context, string) (agent.Answer, error) {
	return f.answer, f.err
}

type fakeIntrospector struct {
	tables []schema.Table
	err    error
}

func (f *fakeIntrospector) ListTables(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return schema.TableNames(f.tables), nil
}

func (f *fakeIntrospector) DescribeTable(_ context.Context, name string) ([]schema.Column, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, table := range f.tables {
		if table.Name == name {
			return table.Columns, nil
		}
	}
	return nil, schema.ErrUnknownTable
}

func testConfig() config.Config {
	return config.Config{
		Service: config.ServiceConfig{Name: "askdb-api"},
	}
}

func testDeps() Dependencies {
	return Dependencies{
		Logger: slog.New(slog.DiscardHandler),
		Agent:  &fakeAsker{},
		Introspector: &fakeIntrospector{tables: []schema.Table{
			{Name: "customers", Columns: []schema.Column{{Name: "id", Type: "INTEGER", PrimaryKey: true}}},
		}},
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["service"] != "askdb-api" {
		t.Fatalf("service = %v", body["service"])
	}
}

func TestReadyEndpointReportsFailure(t *testing.T) {
	deps := testDeps()
	deps.Readiness = func(context.Context) error { return errors.New("database unreachable") }
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAskReturnsAnswer(t *testing.T) {
	deps := testDeps()
	deps.Agent = &fakeAsker{answer: agent.Answer{
		RequestID: "req-1",
		Question:  "How many customers are there?",
		SQL:       "SELECT COUNT(*) AS total_customers FROM customers",
		Columns:   []string{"total_customers"},
		Rows:      []map[string]any{{"total_customers": 500}},
		Chart:     agent.ChartData{Labels: []string{"total_customers"}, Values: []float64{500}},
		Provider:  "anthropic",
	}}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question": "How many customers are there?"}`))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		SQL   string `json:"sql"`
		Chart struct {
			Labels []string  `json:"labels"`
			Values []float64 `json:"values"`
		} `json:"chart_data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.SQL != "SELECT COUNT(*) AS total_customers FROM customers" {
		t.Fatalf("sql = %q", body.SQL)
	}
	if len(body.Chart.Labels) != 1 || body.Chart.Labels[0] != "total_customers" {
		t.Fatalf("chart labels = %v", body.Chart.Labels)
	}
}

func TestAskRejectsInvalidJSON(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader("not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAskErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    *agent.Error
		status int
	}{
		{"validation", &agent.Error{Kind: agent.KindValidation, Code: "DANGEROUS_KEYWORD", Message: "statement contains a forbidden keyword"}, http.StatusBadRequest},
		{"unanswerable", &agent.Error{Kind: agent.KindUnanswerable, Code: agent.CodeUnanswerable, Message: "no weather data"}, http.StatusUnprocessableEntity},
		{"execution", &agent.Error{Kind: agent.KindExecution, Code: agent.CodeQueryFailed, Message: "no such column"}, http.StatusBadRequest},
		{"catalog", &agent.Error{Kind: agent.KindCatalog, Code: agent.CodeCatalogUnavailable, Message: "database schema is unavailable"}, http.StatusInternalServerError},
		{"no provider", &agent.Error{Kind: agent.KindNoProvider, Code: agent.CodeNoProvider, Message: "no LLM provider available"}, http.StatusServiceUnavailable},
		{"upstream", &agent.Error{Kind: agent.KindUpstream, Code: agent.CodeUpstream, Message: "SQL generation provider failed"}, http.StatusBadGateway},
		{"timeout", &agent.Error{Kind: agent.KindTimeout, Code: agent.CodeTimeout, Message: "query execution timed out"}, http.StatusGatewayTimeout},
		{"internal", &agent.Error{Kind: agent.KindInternal, Code: agent.CodeInternal, Message: "internal"}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps := testDeps()
			deps.Agent = &fakeAsker{err: tc.err}
			handler := NewHandler(testConfig(), deps)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question": "q"}`))
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error_code"] != tc.err.Code {
				t.Fatalf("error_code = %v, want %s", body["error_code"], tc.err.Code)
			}
			if body["trace_id"] == "" {
				t.Fatal("trace_id missing from error body")
			}
		})
	}
}

func TestSchemaEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Tables []schema.Table `json:"tables"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Tables) != 1 || body.Tables[0].Name != "customers" {
		t.Fatalf("tables = %+v", body.Tables)
	}
}

func TestDescribeTableNotFound(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/schema/ghosts", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Required = true

	validator, err := auth.NewStaticAPIKeyValidator("secret:analyst:asker")
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	deps := testDeps()
	deps.AuthMiddleware = auth.Middleware(deps.Logger, validator)
	handler := NewHandler(cfg, deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	req.Header.Set("X-API-Key", "secret")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d", rec.Code)
	}

	// Health stays open.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

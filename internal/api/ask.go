package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/askdb/askdb/internal/agent"
	"github.com/askdb/askdb/internal/observability"
)

type askRequest struct {
	Question string `json:"question"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "AGENT_MISSING", "agent is not configured", false)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "request body must be a JSON object with a question field", false)
		return
	}

	answer, err := deps.Agent.Answer(r.Context(), req.Question)
	if err != nil {
		writeAgentError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// writeAgentError maps the agent's error taxonomy to HTTP. Upstream provider
// detail is logged but never surfaced to callers.
func writeAgentError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	var agentErr *agent.Error
	if !errors.As(err, &agentErr) {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "unclassified agent failure",
				slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
				slog.String("error", err.Error()),
			)
		}
		writeError(r.Context(), w, http.StatusInternalServerError, agent.CodeInternal, "internal error", false)
		return
	}

	switch agentErr.Kind {
	case agent.KindValidation:
		writeError(r.Context(), w, http.StatusBadRequest, agentErr.Code, agentErr.Message, false)
	case agent.KindUnanswerable:
		writeError(r.Context(), w, http.StatusUnprocessableEntity, agentErr.Code, agentErr.Message, false)
	case agent.KindExecution:
		writeError(r.Context(), w, http.StatusBadRequest, agentErr.Code, agentErr.Message, false)
	case agent.KindCatalog:
		writeError(r.Context(), w, http.StatusInternalServerError, agentErr.Code, agentErr.Message, true)
	case agent.KindNoProvider:
		writeError(r.Context(), w, http.StatusServiceUnavailable, agentErr.Code, agentErr.Message, true)
	case agent.KindUpstream:
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "provider failure",
				slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
				slog.String("error", agentErr.Error()),
			)
		}
		writeError(r.Context(), w, http.StatusBadGateway, agentErr.Code, agentErr.Message, true)
	case agent.KindTimeout:
		writeError(r.Context(), w, http.StatusGatewayTimeout, agentErr.Code, agentErr.Message, true)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, agentErr.Code, agentErr.Message, false)
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/longregen/promptloop/internal/adapters/http/dto"
	"github.com/longregen/promptloop/internal/adapters/http/encoding"
	"github.com/longregen/promptloop/internal/domain"
)

const maxBodyBytes = 1024 * 1024

// respond writes data in the content type negotiated from the Accept header
func respond(w http.ResponseWriter, r *http.Request, data interface{}, status int) {
	_ = encoding.Write(w, r, status, data)
}

// respondError writes an error body
func respondError(w http.ResponseWriter, r *http.Request, errorType string, message string, status int) {
	respond(w, r, dto.NewErrorResponse(errorType, message, status), status)
}

// respondDomainError maps domain errors onto HTTP statuses. Unknown errors are 500s.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		body := dto.NewErrorResponse("validation_failed", err.Error(), http.StatusUnprocessableEntity)
		body.Rule = validation.Rule
		respond(w, r, body, http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidSession),
		errors.Is(err, domain.ErrInvalidInput):
		respondError(w, r, "invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrPromptNotFound):
		respondError(w, r, "not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrNoActivePrompt), errors.Is(err, domain.ErrLedgerEmpty):
		respondError(w, r, "no_active_prompt", "prompt ledger has not been seeded", http.StatusConflict)
	case errors.Is(err, domain.ErrLLMQuota):
		respondError(w, r, "llm_quota", err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, domain.ErrLLMUnavailable):
		respondError(w, r, "llm_unavailable", err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrLLMTimeout):
		respondError(w, r, "llm_timeout", err.Error(), http.StatusGatewayTimeout)
	case domain.IsLLMError(err):
		respondError(w, r, "llm_error", err.Error(), http.StatusBadGateway)
	case errors.Is(err, domain.ErrCorpusMissing):
		respondError(w, r, "corpus_unavailable", err.Error(), http.StatusFailedDependency)
	case errors.Is(err, domain.ErrLedgerIntegrity):
		respondError(w, r, "ledger_integrity", err.Error(), http.StatusInternalServerError)
	default:
		respondError(w, r, "internal_error", "internal server error", http.StatusInternalServerError)
	}
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(r *http.Request, name string, defaultValue int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// validateURLParam validates and returns a URL parameter
func validateURLParam(r *http.Request, w http.ResponseWriter, paramName, errorField string) (string, bool) {
	value := chi.URLParam(r, paramName)
	if value == "" {
		respondError(w, r, "invalid_request", errorField+" is required", http.StatusBadRequest)
		return "", false
	}
	return value, true
}

// decodeBody decodes a JSON or MessagePack request body
func decodeBody[T any](r *http.Request, w http.ResponseWriter) (*T, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req T
	if err := encoding.Read(r, &req); err != nil {
		respondError(w, r, "invalid_request", "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

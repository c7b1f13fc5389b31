package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/http/dto"
	"github.com/longregen/promptloop/internal/ports"
)

const maxPromptListLimit = 200

type PromptsHandler struct {
	prompts ports.PromptVersionService
	logger  *zap.Logger
}

func NewPromptsHandler(prompts ports.PromptVersionService, logger *zap.Logger) *PromptsHandler {
	return &PromptsHandler{prompts: prompts, logger: logger}
}

// List returns prompt versions newest first
func (h *PromptsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	if limit < 1 || limit > maxPromptListLimit {
		respondError(w, r, "invalid_request", "limit must be between 1 and 200", http.StatusBadRequest)
		return
	}

	prompts, err := h.prompts.List(r.Context(), limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, r, dto.FromPromptModelList(prompts), http.StatusOK)
}

func (h *PromptsHandler) Active(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.prompts.GetActive(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, r, dto.FromPromptModel(prompt), http.StatusOK)
}

func (h *PromptsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Prompt ID")
	if !ok {
		return
	}
	prompt, err := h.prompts.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, r, dto.FromPromptModel(prompt), http.StatusOK)
}

// Activate rolls the active prompt to an existing version
func (h *PromptsHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Prompt ID")
	if !ok {
		return
	}

	prompt, err := h.prompts.ActivateByID(r.Context(), id)
	if err != nil {
		h.logger.Warn("prompt activation failed", zap.String("prompt_id", id), zap.Error(err))
		respondDomainError(w, r, err)
		return
	}
	respond(w, r, dto.FromPromptModel(prompt), http.StatusOK)
}

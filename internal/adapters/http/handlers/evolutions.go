package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/http/dto"
	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
)

type EvolutionsHandler struct {
	runEvolution ports.RunEvolutionUseCase
	logger       *zap.Logger
}

func NewEvolutionsHandler(runEvolution ports.RunEvolutionUseCase, logger *zap.Logger) *EvolutionsHandler {
	return &EvolutionsHandler{runEvolution: runEvolution, logger: logger}
}

// Run executes one evolution synchronously and returns the promoted prompt.
// An empty body is a manual run.
func (h *EvolutionsHandler) Run(w http.ResponseWriter, r *http.Request) {
	trigger := models.TriggerManual
	if r.ContentLength > 0 {
		req, ok := decodeBody[dto.EvolutionRequest](r, w)
		if !ok {
			return
		}
		if req.TriggeredBy != "" {
			trigger = models.TriggerSource(req.TriggeredBy)
		}
	}
	if trigger != models.TriggerManual && trigger != models.TriggerAutonomous {
		respondError(w, r, "invalid_request", "triggered_by must be manual or autonomous", http.StatusBadRequest)
		return
	}

	prompt, err := h.runEvolution.Execute(r.Context(), trigger)
	if err != nil {
		h.logger.Warn("evolution request failed", zap.Error(err))
		respondDomainError(w, r, err)
		return
	}
	respond(w, r, dto.FromPromptModel(prompt), http.StatusCreated)
}

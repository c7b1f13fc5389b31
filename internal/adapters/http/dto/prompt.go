package dto

import (
	"time"

	"github.com/longregen/promptloop/internal/domain/models"
)

type PromptResponse struct {
	ID          string  `json:"id" msgpack:"id"`
	Version     int     `json:"version" msgpack:"version"`
	Content     string  `json:"content" msgpack:"content"`
	Active      bool    `json:"active" msgpack:"active"`
	TriggeredBy string  `json:"triggered_by" msgpack:"triggeredBy"`
	ParentID    string  `json:"parent_id,omitempty" msgpack:"parentId,omitempty"`
	CreatedAt   string  `json:"created_at" msgpack:"createdAt"`
	ActivatedAt *string `json:"activated_at,omitempty" msgpack:"activatedAt,omitempty"`
}

type PromptListResponse struct {
	Prompts []*PromptResponse `json:"prompts" msgpack:"prompts"`
	Total   int               `json:"total" msgpack:"total"`
}

func FromPromptModel(p *models.Prompt) *PromptResponse {
	var activatedAt *string
	if p.ActivatedAt != nil {
		formatted := p.ActivatedAt.Format(time.RFC3339)
		activatedAt = &formatted
	}
	return &PromptResponse{
		ID:          p.ID,
		Version:     p.Version,
		Content:     p.Content,
		Active:      p.Active,
		TriggeredBy: string(p.TriggeredBy),
		ParentID:    p.ParentID,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		ActivatedAt: activatedAt,
	}
}

func FromPromptModelList(prompts []*models.Prompt) *PromptListResponse {
	out := make([]*PromptResponse, len(prompts))
	for i, p := range prompts {
		out[i] = FromPromptModel(p)
	}
	return &PromptListResponse{Prompts: out, Total: len(out)}
}

type EvolutionRequest struct {
	// TriggeredBy defaults to "manual"
	TriggeredBy string `json:"triggered_by,omitempty" msgpack:"triggeredBy,omitempty"`
}

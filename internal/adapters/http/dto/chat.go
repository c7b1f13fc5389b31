package dto

import (
	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
)

type ChatRequest struct {
	SessionID string `json:"session_id" msgpack:"sessionId"`
	Message   string `json:"message" msgpack:"message"`
}

type ChatResponse struct {
	Reply              string `json:"reply" msgpack:"reply"`
	PromptID           string `json:"prompt_id" msgpack:"promptId"`
	PromptVersion      int    `json:"prompt_version" msgpack:"promptVersion"`
	PromptPreview      string `json:"prompt_preview" msgpack:"promptPreview"`
	MessageID          string `json:"message_id,omitempty" msgpack:"messageId,omitempty"`
	EvolutionScheduled bool   `json:"evolution_scheduled" msgpack:"evolutionScheduled"`
	Fallback           bool   `json:"fallback,omitempty" msgpack:"fallback,omitempty"`
}

func FromGenerateReplyOutput(out *ports.GenerateReplyOutput) *ChatResponse {
	resp := &ChatResponse{
		Reply:              out.Reply,
		EvolutionScheduled: out.EvolutionScheduled,
		Fallback:           out.Fallback,
	}
	if out.Prompt != nil {
		resp.PromptID = out.Prompt.ID
		resp.PromptVersion = out.Prompt.Version
		resp.PromptPreview = out.Prompt.Preview(models.DefaultPreviewLength)
	}
	if out.Message != nil {
		resp.MessageID = out.Message.ID
	}
	return resp
}

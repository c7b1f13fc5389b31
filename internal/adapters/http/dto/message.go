package dto

import (
	"time"

	"github.com/longregen/promptloop/internal/domain/models"
)

type MessageResponse struct {
	ID        string `json:"id" msgpack:"id"`
	SessionID string `json:"session_id" msgpack:"sessionId"`
	Role      string `json:"role" msgpack:"role"`
	Content   string `json:"content" msgpack:"content"`
	PromptID  string `json:"prompt_id,omitempty" msgpack:"promptId,omitempty"`
	CreatedAt string `json:"created_at" msgpack:"createdAt"`
}

type MessageListResponse struct {
	Messages []*MessageResponse `json:"messages" msgpack:"messages"`
	Total    int                `json:"total" msgpack:"total"`
}

func FromMessageModel(m *models.Message) *MessageResponse {
	return &MessageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      string(m.Role),
		Content:   m.Content,
		PromptID:  m.PromptID,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func FromMessageModelList(messages []*models.Message) *MessageListResponse {
	out := make([]*MessageResponse, len(messages))
	for i, m := range messages {
		out[i] = FromMessageModel(m)
	}
	return &MessageListResponse{Messages: out, Total: len(out)}
}

type ResetResponse struct {
	Deleted int64 `json:"deleted" msgpack:"deleted"`
}

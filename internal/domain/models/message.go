package models

import (
	"time"

	"github.com/longregen/promptloop/internal/domain"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// IsValid reports whether the role can be stored in the conversation ledger.
// System messages are never persisted; the active prompt supplies them.
func (r MessageRole) IsValid() bool {
	return r == MessageRoleUser || r == MessageRoleAssistant
}

// Message is one conversation turn. Messages are append-only.
type Message struct {
	ID        string      `json:"id" msgpack:"id"`
	SessionID string      `json:"session_id" msgpack:"session_id"`
	Role      MessageRole `json:"role" msgpack:"role"`
	Content   string      `json:"content" msgpack:"content"`
	// PromptID is the prompt the reply was generated under. Set only for assistant messages.
	PromptID  string    `json:"prompt_id,omitempty" msgpack:"prompt_id,omitempty"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

func NewUserMessage(id, sessionID, content string) *Message {
	return &Message{
		ID:        id,
		SessionID: sessionID,
		Role:      MessageRoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(), // Always use UTC for consistent timezone handling
	}
}

func NewAssistantMessage(id, sessionID, content, promptID string) *Message {
	return &Message{
		ID:        id,
		SessionID: sessionID,
		Role:      MessageRoleAssistant,
		Content:   content,
		PromptID:  promptID,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the ledger invariants for a message before it is persisted
func (m *Message) Validate() error {
	if m.SessionID == "" {
		return domain.ErrInvalidSession
	}
	if !m.Role.IsValid() {
		return domain.ErrInvalidRole
	}
	if m.Role == MessageRoleAssistant && m.PromptID == "" {
		return domain.NewDomainError(domain.ErrInvalidInput, "assistant message must reference a prompt")
	}
	if m.Role == MessageRoleUser && m.PromptID != "" {
		return domain.NewDomainError(domain.ErrInvalidInput, "user message cannot reference a prompt")
	}
	return nil
}

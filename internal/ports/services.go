package ports

import (
	"context"

	"github.com/longregen/promptloop/internal/domain/models"
)

// LLMMessage represents a message in the LLM conversation context
type LLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMService is the outbound LLM transport. Implementations retry
// transient, quota and provider failures before returning an error.
type LLMService interface {
	// Generate sends a system prompt and a single user message
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
	// Chat sends an ordered message list
	Chat(ctx context.Context, messages []LLMMessage) (string, error)
}

// CorpusSource provides the read-only reference corpus
type CorpusSource interface {
	Load(ctx context.Context) (models.Corpus, error)
}

// ReportSink stores behavior reports for audit. It is not part of the prompt ledger.
type ReportSink interface {
	Save(ctx context.Context, report *models.BehaviorReport) error
}

// PolicyChecker accepts or rejects a candidate system prompt
type PolicyChecker interface {
	// Check returns a *domain.ValidationError when the text is rejected
	Check(text string) error
}

// BehaviorExtractor produces the stage 1 behavior report from the reference corpus
type BehaviorExtractor interface {
	Extract(ctx context.Context, runID string, corpus models.Corpus) (string, error)
}

// PromptRewriter produces a stage 2 candidate prompt. Blank output is
// reported as a *domain.ValidationError.
type PromptRewriter interface {
	Rewrite(ctx context.Context, currentPrompt, report string) (string, error)
}

// PromptVersionService owns every mutation of the prompt ledger
type PromptVersionService interface {
	GetActive(ctx context.Context) (*models.Prompt, error)
	GetLatestVersion(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id string) (*models.Prompt, error)
	CreateVersion(ctx context.Context, content, parentID string, triggeredBy models.TriggerSource) (*models.Prompt, error)
	Promote(ctx context.Context, id string) error
	ActivateByID(ctx context.Context, id string) (*models.Prompt, error)
	CreateAndPromote(ctx context.Context, content, parentID string, triggeredBy models.TriggerSource) (*models.Prompt, error)
	Seed(ctx context.Context, content string) (*models.Prompt, bool, error)
	List(ctx context.Context, limit int) ([]*models.Prompt, error)
}

// ConversationService exposes read and reset operations on the conversation ledger
type ConversationService interface {
	History(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)
	ResetHistory(ctx context.Context) (int64, error)
}

package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/ports"
	"github.com/longregen/promptloop/internal/prompt"
)

// PromptRewriter asks the editor model for a revised system prompt
type PromptRewriter struct {
	llm    ports.LLMService
	guard  *prompt.PayloadGuard
	logger *zap.Logger
}

func NewPromptRewriter(llm ports.LLMService, guard *prompt.PayloadGuard, logger *zap.Logger) *PromptRewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = prompt.NewPayloadGuard(prompt.DefaultPayloadBudget, logger)
	}
	return &PromptRewriter{llm: llm, guard: guard, logger: logger}
}

// Rewrite returns the trimmed candidate. Blank output is a validation failure
// so callers treat it like any other rejected candidate.
func (r *PromptRewriter) Rewrite(ctx context.Context, currentPrompt, report string) (string, error) {
	request := prompt.ComposeRewriteRequest(r.guard, currentPrompt, report)

	out, err := r.llm.Generate(ctx, prompt.PromptRewriterInstruction, request)
	if err != nil {
		return "", fmt.Errorf("prompt rewrite: %w", err)
	}

	candidate := strings.TrimSpace(out)
	if candidate == "" {
		r.logger.Warn("editor model returned an empty candidate", zap.Int("raw_length", len(out)))
		return "", &domain.ValidationError{Rule: prompt.RuleNonEmpty}
	}
	r.logger.Debug("candidate prompt drafted", zap.Int("length", len(candidate)))
	return candidate, nil
}

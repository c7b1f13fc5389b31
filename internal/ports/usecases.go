package ports

import (
	"context"

	"github.com/longregen/promptloop/internal/domain/models"
)

// GenerateReplyInput is a single user chat turn
type GenerateReplyInput struct {
	SessionID string
	Content   string
}

// GenerateReplyOutput is the reply and the prompt it was generated under
type GenerateReplyOutput struct {
	Reply   string
	Prompt  *models.Prompt
	Message *models.Message
	// EvolutionScheduled is true when this turn hit the trigger cadence
	EvolutionScheduled bool
	// Fallback is true when the model call failed and the configured fallback reply was used
	Fallback bool
}

// GenerateReplyUseCase runs one chat turn
type GenerateReplyUseCase interface {
	Execute(ctx context.Context, input *GenerateReplyInput) (*GenerateReplyOutput, error)
}

// RunEvolutionUseCase runs the evolution pipeline end to end
type RunEvolutionUseCase interface {
	Execute(ctx context.Context, triggeredBy models.TriggerSource) (*models.Prompt, error)
}

// EvolutionDispatcher schedules best-effort evolution runs. Dispatch never fails.
type EvolutionDispatcher interface {
	Dispatch(sessionID string, triggeredBy models.TriggerSource)
}

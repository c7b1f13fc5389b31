package usecases

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/metrics"
	"github.com/longregen/promptloop/internal/adapters/tracing"
	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
	"github.com/longregen/promptloop/internal/prompt"
)

const defaultHistoryLimit = 10

// GenerateReplyConfig holds the per-turn settings
type GenerateReplyConfig struct {
	HistoryLimit  int
	FallbackReply string
	Trigger       prompt.Trigger
}

// GenerateReply runs one chat turn: persist the user message, answer with the
// active prompt, persist the reply tagged with that prompt, then schedule an
// evolution when the session hits the trigger cadence. The reply always comes
// from the prompt that was active when the turn started.
type GenerateReply struct {
	messageRepo   ports.MessageRepository
	prompts       ports.PromptVersionService
	conversations ports.ConversationService
	llm           ports.LLMService
	dispatcher    ports.EvolutionDispatcher
	idGenerator   ports.IDGenerator
	cfg           GenerateReplyConfig
	logger        *zap.Logger
}

func NewGenerateReply(
	messageRepo ports.MessageRepository,
	prompts ports.PromptVersionService,
	conversations ports.ConversationService,
	llm ports.LLMService,
	dispatcher ports.EvolutionDispatcher,
	idGenerator ports.IDGenerator,
	cfg GenerateReplyConfig,
	logger *zap.Logger,
) *GenerateReply {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Trigger.Cadence <= 0 {
		cfg.Trigger = prompt.NewTrigger(prompt.DefaultTriggerCadence)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateReply{
		messageRepo:   messageRepo,
		prompts:       prompts,
		conversations: conversations,
		llm:           llm,
		dispatcher:    dispatcher,
		idGenerator:   idGenerator,
		cfg:           cfg,
		logger:        logger,
	}
}

func (uc *GenerateReply) Execute(ctx context.Context, input *ports.GenerateReplyInput) (*ports.GenerateReplyOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, domain.ErrInvalidSession
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.ErrEmptyContent
	}

	ctx, span := tracing.Tracer().Start(ctx, "chat.turn")
	defer span.End()
	span.SetAttributes(attribute.String("chat.session_id", input.SessionID))

	out, err := uc.execute(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ChatRepliesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("chat.prompt_version", out.Prompt.Version),
		attribute.Bool("chat.evolution_scheduled", out.EvolutionScheduled),
	)
	if out.Fallback {
		metrics.ChatRepliesTotal.WithLabelValues("fallback").Inc()
	} else {
		metrics.ChatRepliesTotal.WithLabelValues("ok").Inc()
	}
	return out, nil
}

func (uc *GenerateReply) execute(ctx context.Context, input *ports.GenerateReplyInput) (*ports.GenerateReplyOutput, error) {
	userMsg := models.NewUserMessage(uc.idGenerator.GenerateMessageID(), input.SessionID, input.Content)
	if err := uc.messageRepo.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(models.MessageRoleUser)).Inc()

	active, err := uc.prompts.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	history, err := uc.conversations.History(ctx, input.SessionID, uc.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}

	llmMessages := make([]ports.LLMMessage, 0, len(history)+1)
	llmMessages = append(llmMessages, ports.LLMMessage{Role: string(models.MessageRoleSystem), Content: active.Content})
	for _, msg := range history {
		llmMessages = append(llmMessages, ports.LLMMessage{Role: string(msg.Role), Content: msg.Content})
	}

	reply, err := uc.llm.Chat(ctx, llmMessages)
	if err != nil {
		if uc.cfg.FallbackReply == "" {
			return nil, fmt.Errorf("failed to generate reply: %w", err)
		}
		uc.logger.Warn("model call failed, returning fallback reply",
			zap.String("session_id", input.SessionID),
			zap.Error(err),
		)
		// The persisted user message still counts toward the cadence
		return &ports.GenerateReplyOutput{
			Reply:              uc.cfg.FallbackReply,
			Prompt:             active,
			Fallback:           true,
			EvolutionScheduled: uc.evaluateTrigger(ctx, input.SessionID),
		}, nil
	}

	assistantMsg := models.NewAssistantMessage(uc.idGenerator.GenerateMessageID(), input.SessionID, reply, active.ID)
	if err := uc.messageRepo.Create(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(models.MessageRoleAssistant)).Inc()

	return &ports.GenerateReplyOutput{
		Reply:              reply,
		Prompt:             active,
		Message:            assistantMsg,
		EvolutionScheduled: uc.evaluateTrigger(ctx, input.SessionID),
	}, nil
}

// evaluateTrigger schedules an evolution when the session's user message
// count hits the cadence. Errors only skip the evolution.
func (uc *GenerateReply) evaluateTrigger(ctx context.Context, sessionID string) bool {
	if uc.dispatcher == nil {
		return false
	}

	count, err := uc.messageRepo.CountUserMessages(ctx, sessionID)
	if err != nil {
		uc.logger.Warn("failed to count user messages, skipping evolution check",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return false
	}
	if !uc.cfg.Trigger.ShouldEvolve(count) {
		return false
	}

	uc.logger.Info("trigger cadence reached, scheduling evolution",
		zap.String("session_id", sessionID),
		zap.Int("user_messages", count),
	)
	uc.dispatcher.Dispatch(sessionID, models.TriggerAutonomous)
	return true
}

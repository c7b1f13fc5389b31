package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/config"
	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
)

const DefaultHistoryLimit = 10

// ConversationService reads and resets the conversation ledger
type ConversationService struct {
	repo   ports.MessageRepository
	logger *zap.Logger
}

func NewConversationService(repo ports.MessageRepository, logger *zap.Logger) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{repo: repo, logger: logger}
}

// History returns the session's latest messages oldest first. A non-positive
// limit selects DefaultHistoryLimit.
func (s *ConversationService) History(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	if sessionID == "" {
		return nil, domain.ErrInvalidSession
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if err := ValidateRange(limit, "history limit", 1, config.MaxHistoryLimit); err != nil {
		return nil, err
	}

	messages, err := s.repo.GetRecentBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, domain.NewDomainError(err, "failed to load history")
	}
	return messages, nil
}

// ResetHistory deletes every stored message. The prompt ledger is untouched.
func (s *ConversationService) ResetHistory(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, domain.NewDomainError(err, "failed to reset history")
	}
	s.logger.Info("conversation history reset", zap.Int64("deleted", deleted))
	return deleted, nil
}

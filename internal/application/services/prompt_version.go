package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/longregen/promptloop/internal/adapters/metrics"
	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
)

const defaultListLimit = 20

// PromptVersionService owns the prompt ledger. Every mutation holds the
// in-process writer guard and runs in one transaction that first takes the
// database ledger lock, so versions are computed inside the critical section.
type PromptVersionService struct {
	repo        ports.PromptRepository
	txManager   ports.TransactionManager
	idGenerator ports.IDGenerator
	writer      *semaphore.Weighted
	logger      *zap.Logger
}

func NewPromptVersionService(
	repo ports.PromptRepository,
	txManager ports.TransactionManager,
	idGenerator ports.IDGenerator,
	logger *zap.Logger,
) *PromptVersionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptVersionService{
		repo:        repo,
		txManager:   txManager,
		idGenerator: idGenerator,
		writer:      semaphore.NewWeighted(1),
		logger:      logger,
	}
}

// GetActive returns the single active prompt
func (s *PromptVersionService) GetActive(ctx context.Context) (*models.Prompt, error) {
	return s.active(ctx)
}

func (s *PromptVersionService) active(ctx context.Context) (*models.Prompt, error) {
	prompts, err := s.repo.ListActive(ctx, 2)
	if err != nil {
		return nil, domain.NewDomainError(err, "failed to load active prompt")
	}
	switch len(prompts) {
	case 0:
		return nil, domain.ErrNoActivePrompt
	case 1:
		return prompts[0], nil
	default:
		return nil, domain.NewDomainError(domain.ErrLedgerIntegrity, "more than one active prompt")
	}
}

func (s *PromptVersionService) GetLatestVersion(ctx context.Context) (int, error) {
	version, err := s.repo.GetLatestVersion(ctx)
	if err != nil {
		return 0, domain.NewDomainError(err, "failed to read latest version")
	}
	return version, nil
}

func (s *PromptVersionService) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	if err := ValidateID(id, "prompt"); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// List returns prompt versions newest first
func (s *PromptVersionService) List(ctx context.Context, limit int) ([]*models.Prompt, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	prompts, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, domain.NewDomainError(err, "failed to list prompts")
	}
	return prompts, nil
}

// CreateVersion appends an inactive version numbered latest+1
func (s *PromptVersionService) CreateVersion(ctx context.Context, content, parentID string, triggeredBy models.TriggerSource) (*models.Prompt, error) {
	if err := s.validateCandidate(content, triggeredBy); err != nil {
		return nil, err
	}

	var created *models.Prompt
	err := s.mutate(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.createLocked(txCtx, content, parentID, triggeredBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Promote makes id the only active prompt. On failure the previous active prompt stays active.
func (s *PromptVersionService) Promote(ctx context.Context, id string) error {
	_, err := s.ActivateByID(ctx, id)
	return err
}

// ActivateByID promotes an existing version and returns it
func (s *PromptVersionService) ActivateByID(ctx context.Context, id string) (*models.Prompt, error) {
	if err := ValidateID(id, "prompt"); err != nil {
		return nil, err
	}

	var activated *models.Prompt
	err := s.mutate(ctx, func(txCtx context.Context) error {
		var err error
		activated, err = s.promoteLocked(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("prompt activated",
		zap.String("prompt_id", activated.ID),
		zap.Int("version", activated.Version),
	)
	metrics.ActivePromptVersion.Set(float64(activated.Version))
	return activated, nil
}

// CreateAndPromote appends a version and activates it in the same transaction
func (s *PromptVersionService) CreateAndPromote(ctx context.Context, content, parentID string, triggeredBy models.TriggerSource) (*models.Prompt, error) {
	if err := s.validateCandidate(content, triggeredBy); err != nil {
		return nil, err
	}

	var promoted *models.Prompt
	err := s.mutate(ctx, func(txCtx context.Context) error {
		created, err := s.createLocked(txCtx, content, parentID, triggeredBy)
		if err != nil {
			return err
		}
		promoted, err = s.promoteLocked(txCtx, created.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("prompt version promoted",
		zap.String("prompt_id", promoted.ID),
		zap.Int("version", promoted.Version),
		zap.String("parent_id", promoted.ParentID),
		zap.String("triggered_by", string(promoted.TriggeredBy)),
	)
	metrics.ActivePromptVersion.Set(float64(promoted.Version))
	return promoted, nil
}

// Seed creates version 1 as the active prompt when the ledger is empty.
// On a seeded ledger it returns the active prompt and false.
func (s *PromptVersionService) Seed(ctx context.Context, content string) (*models.Prompt, bool, error) {
	if err := ValidateRequired(content, "seed prompt"); err != nil {
		return nil, false, err
	}

	var prompt *models.Prompt
	var created bool
	err := s.mutate(ctx, func(txCtx context.Context) error {
		latest, err := s.repo.GetLatestVersion(txCtx)
		if err != nil {
			return domain.NewDomainError(err, "failed to read latest version")
		}
		if latest > 0 {
			prompt, err = s.active(txCtx)
			return err
		}

		now := time.Now().UTC()
		prompt = models.NewPrompt(s.idGenerator.GeneratePromptID(), 1, content, models.TriggerSeed, "")
		prompt.Active = true
		prompt.ActivatedAt = &now
		if err := s.repo.Create(txCtx, prompt); err != nil {
			return domain.NewDomainError(err, "failed to create seed prompt")
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("prompt ledger seeded", zap.String("prompt_id", prompt.ID))
	}
	metrics.ActivePromptVersion.Set(float64(prompt.Version))
	return prompt, created, nil
}

func (s *PromptVersionService) validateCandidate(content string, triggeredBy models.TriggerSource) error {
	if err := ValidateRequired(content, "prompt content"); err != nil {
		return err
	}
	return ValidateTrigger(triggeredBy)
}

// mutate runs fn under the writer guard in a transaction holding the ledger lock
func (s *PromptVersionService) mutate(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire prompt ledger writer: %w", err)
	}
	defer s.writer.Release(1)

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockLedger(txCtx); err != nil {
			return domain.NewDomainError(err, "failed to lock prompt ledger")
		}
		return fn(txCtx)
	})
}

func (s *PromptVersionService) createLocked(txCtx context.Context, content, parentID string, triggeredBy models.TriggerSource) (*models.Prompt, error) {
	latest, err := s.repo.GetLatestVersion(txCtx)
	if err != nil {
		return nil, domain.NewDomainError(err, "failed to read latest version")
	}

	prompt := models.NewPrompt(s.idGenerator.GeneratePromptID(), latest+1, content, triggeredBy, parentID)
	if err := s.repo.Create(txCtx, prompt); err != nil {
		return nil, domain.NewDomainError(err, "failed to create prompt version")
	}
	return prompt, nil
}

func (s *PromptVersionService) promoteLocked(txCtx context.Context, id string) (*models.Prompt, error) {
	if _, err := s.repo.GetByID(txCtx, id); err != nil {
		if errors.Is(err, domain.ErrPromptNotFound) {
			return nil, err
		}
		return nil, domain.NewDomainError(err, "failed to load prompt")
	}

	if _, err := s.repo.DeactivateAll(txCtx); err != nil {
		return nil, domain.NewDomainError(err, "failed to deactivate prompts")
	}
	n, err := s.repo.Activate(txCtx, id)
	if err != nil {
		return nil, domain.NewDomainError(err, "failed to activate prompt")
	}
	if n != 1 {
		return nil, domain.ErrPromptNotFound
	}

	count, err := s.repo.CountActive(txCtx)
	if err != nil {
		return nil, domain.NewDomainError(err, "failed to verify active prompt")
	}
	if count != 1 {
		return nil, domain.NewDomainError(domain.ErrLedgerIntegrity, fmt.Sprintf("%d active prompts after promotion", count))
	}

	return s.repo.GetByID(txCtx, id)
}

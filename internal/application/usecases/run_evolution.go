package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/metrics"
	"github.com/longregen/promptloop/internal/adapters/tracing"
	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
)

// DefaultRewriteAttempts is how many stage 2 candidates a run may try
const DefaultRewriteAttempts = 2

// Evolution outcomes recorded in metrics
const (
	outcomePromoted = "promoted"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// RunEvolution extracts a behavior report from the reference corpus, asks the
// editor model for a revised prompt, gates it through the policy and promotes
// it. A rejected run leaves the prompt ledger untouched.
type RunEvolution struct {
	prompts     ports.PromptVersionService
	corpus      ports.CorpusSource
	extractor   ports.BehaviorExtractor
	rewriter    ports.PromptRewriter
	policy      ports.PolicyChecker
	idGenerator ports.IDGenerator
	attempts    int
	logger      *zap.Logger
}

func NewRunEvolution(
	prompts ports.PromptVersionService,
	corpus ports.CorpusSource,
	extractor ports.BehaviorExtractor,
	rewriter ports.PromptRewriter,
	policy ports.PolicyChecker,
	idGenerator ports.IDGenerator,
	attempts int,
	logger *zap.Logger,
) *RunEvolution {
	if attempts <= 0 {
		attempts = DefaultRewriteAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunEvolution{
		prompts:     prompts,
		corpus:      corpus,
		extractor:   extractor,
		rewriter:    rewriter,
		policy:      policy,
		idGenerator: idGenerator,
		attempts:    attempts,
		logger:      logger,
	}
}

func (uc *RunEvolution) Execute(ctx context.Context, triggeredBy models.TriggerSource) (*models.Prompt, error) {
	if triggeredBy == "" {
		triggeredBy = models.TriggerManual
	}
	runID := uc.idGenerator.GenerateRunID()
	logger := uc.logger.With(zap.String("run_id", runID), zap.String("triggered_by", string(triggeredBy)))

	ctx, span := tracing.Tracer().Start(ctx, "evolution.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("evolution.run_id", runID),
		attribute.String("evolution.triggered_by", string(triggeredBy)),
	)

	start := time.Now()
	promoted, err := uc.run(ctx, runID, triggeredBy, logger)
	metrics.EvolutionDuration.Observe(time.Since(start).Seconds())

	outcome := outcomePromoted
	switch {
	case errors.Is(err, domain.ErrValidation):
		outcome = outcomeRejected
	case err != nil:
		outcome = outcomeFailed
	}
	metrics.EvolutionsTotal.WithLabelValues(string(triggeredBy), outcome).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("evolution aborted", zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("evolution.version", promoted.Version))
	logger.Info("evolution promoted new prompt",
		zap.String("prompt_id", promoted.ID),
		zap.Int("version", promoted.Version),
		zap.Duration("duration", time.Since(start)),
	)
	return promoted, nil
}

func (uc *RunEvolution) run(ctx context.Context, runID string, triggeredBy models.TriggerSource, logger *zap.Logger) (*models.Prompt, error) {
	active, err := uc.prompts.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	corpus, err := uc.corpus.Load(ctx)
	if err != nil {
		return nil, err
	}

	report, err := uc.extractor.Extract(ctx, runID, corpus)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= uc.attempts; attempt++ {
		candidate, err := uc.rewriter.Rewrite(ctx, active.Content, report)
		if err == nil {
			err = uc.policy.Check(candidate)
		}
		if err == nil {
			return uc.prompts.CreateAndPromote(ctx, candidate, active.ID, triggeredBy)
		}
		if !errors.Is(err, domain.ErrValidation) {
			return nil, err
		}

		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			metrics.ValidationRejectionsTotal.WithLabelValues(verr.Rule).Inc()
		}
		logger.Warn("candidate prompt rejected",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", uc.attempts),
			zap.Error(err),
		)
		lastErr = err
	}

	return nil, fmt.Errorf("no acceptable candidate after %d attempts: %w", uc.attempts, lastErr)
}

package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
	"github.com/longregen/promptloop/internal/prompt"
)

// BehaviorExtractor summarizes assistant behavior in the reference corpus
type BehaviorExtractor struct {
	llm    ports.LLMService
	sink   ports.ReportSink
	guard  *prompt.PayloadGuard
	logger *zap.Logger
	now    func() time.Time
}

func NewBehaviorExtractor(llm ports.LLMService, sink ports.ReportSink, guard *prompt.PayloadGuard, logger *zap.Logger) *BehaviorExtractor {
	if guard == nil {
		guard = prompt.NewPayloadGuard(prompt.DefaultPayloadBudget, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BehaviorExtractor{
		llm:    llm,
		sink:   sink,
		guard:  guard,
		logger: logger,
		now:    time.Now,
	}
}

// Extract sends the most recent outbound corpus turns to the model and returns
// its behavior report. The report is also handed to the audit sink; a sink
// failure is logged and does not fail the extraction.
func (e *BehaviorExtractor) Extract(ctx context.Context, runID string, corpus models.Corpus) (string, error) {
	joined := prompt.JoinOutbound(corpus.OutboundTexts())
	guarded := e.guard.Apply("assistant_messages", joined)

	report, err := e.llm.Generate(ctx, prompt.BehaviorExtractorInstruction, prompt.ExtractorUserMessage(guarded))
	if err != nil {
		return "", fmt.Errorf("behavior extraction: %w", err)
	}

	if e.sink != nil {
		artifact := &models.BehaviorReport{
			RunID:       runID,
			Report:      report,
			GeneratedAt: e.now().UTC(),
		}
		if err := e.sink.Save(ctx, artifact); err != nil {
			e.logger.Warn("failed to save behavior report",
				zap.String("run_id", runID),
				zap.Error(err),
			)
		}
	}
	return report, nil
}

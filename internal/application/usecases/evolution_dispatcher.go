package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/metrics"
	"github.com/longregen/promptloop/internal/config"
	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
)

const defaultEvolutionTimeout = 2 * time.Minute

// EvolutionDispatcher runs evolutions outside the chat turn that triggered
// them. Failures and panics are logged and never reach the caller.
type EvolutionDispatcher struct {
	baseCtx context.Context
	run     ports.RunEvolutionUseCase
	mode    string
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewEvolutionDispatcher creates a dispatcher whose runs derive from baseCtx,
// so they outlive the request and stop at process shutdown.
func NewEvolutionDispatcher(baseCtx context.Context, run ports.RunEvolutionUseCase, mode string, timeout time.Duration, logger *zap.Logger) *EvolutionDispatcher {
	if mode != config.EvolutionModeInline {
		mode = config.EvolutionModeDetached
	}
	if timeout <= 0 {
		timeout = defaultEvolutionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvolutionDispatcher{
		baseCtx: baseCtx,
		run:     run,
		mode:    mode,
		timeout: timeout,
		logger:  logger,
	}
}

func (d *EvolutionDispatcher) Dispatch(sessionID string, triggeredBy models.TriggerSource) {
	if d.mode == config.EvolutionModeInline {
		d.execute(sessionID, triggeredBy)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.execute(sessionID, triggeredBy)
	}()
}

// Wait blocks until every detached run has finished
func (d *EvolutionDispatcher) Wait() {
	d.wg.Wait()
}

func (d *EvolutionDispatcher) execute(sessionID string, triggeredBy models.TriggerSource) {
	logger := d.logger.With(zap.String("session_id", sessionID), zap.String("mode", d.mode))

	metrics.EvolutionsInFlight.Inc()
	defer metrics.EvolutionsInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("evolution panicked", zap.Error(fmt.Errorf("panic: %v", r)))
		}
	}()

	ctx, cancel := context.WithTimeout(d.baseCtx, d.timeout)
	defer cancel()

	promoted, err := d.run.Execute(ctx, triggeredBy)
	if err != nil {
		logger.Error("evolution failed", zap.Error(err))
		return
	}
	logger.Info("evolution completed", zap.Int("version", promoted.Version))
}

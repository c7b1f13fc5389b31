package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/corpus"
	"github.com/longregen/promptloop/internal/adapters/http/handlers"
	"github.com/longregen/promptloop/internal/adapters/id"
	"github.com/longregen/promptloop/internal/adapters/metrics"
	"github.com/longregen/promptloop/internal/adapters/postgres"
	"github.com/longregen/promptloop/internal/adapters/sqlite"
	"github.com/longregen/promptloop/internal/application/services"
	"github.com/longregen/promptloop/internal/application/usecases"
	"github.com/longregen/promptloop/internal/config"
	"github.com/longregen/promptloop/internal/llm"
	"github.com/longregen/promptloop/internal/ports"
	"github.com/longregen/promptloop/internal/prompt"
)

// storage bundles the repositories of whichever driver is configured
type storage struct {
	prompts   ports.PromptRepository
	messages  ports.MessageRepository
	txManager ports.TransactionManager
	pinger    handlers.Pinger
	close     func()
}

// openStorage connects to the configured database and applies the schema
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.IsPostgres() {
		pool, err := postgres.Connect(ctx, cfg.Database.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &storage{
			prompts:   postgres.NewPromptRepository(pool),
			messages:  postgres.NewMessageRepository(pool),
			txManager: postgres.NewTransactionManager(pool),
			pinger:    pool,
			close:     pool.Close,
		}, nil
	}

	store, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return &storage{
		prompts:   sqlite.NewPromptRepository(store),
		messages:  sqlite.NewMessageRepository(store),
		txManager: sqlite.NewTransactionManager(store),
		pinger:    store,
		close:     func() { _ = store.Close() },
	}, nil
}

// app is the fully wired application
type app struct {
	store         *storage
	prompts       *services.PromptVersionService
	conversations *services.ConversationService
	runEvolution  *usecases.RunEvolution
	dispatcher    *usecases.EvolutionDispatcher
	generateReply *usecases.GenerateReply
}

// buildApp wires every component. baseCtx bounds detached evolution runs.
func buildApp(baseCtx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := openStorage(baseCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	idGen := id.New()

	chatLLM := llm.NewService("chat", llm.NewClient(cfg.LLM, llm.WithLogger(logger)), logger)
	editorLLM := llm.NewService("editor", llm.NewClient(cfg.Editor(), llm.WithLogger(logger)), logger)

	guard := prompt.NewPayloadGuard(cfg.Evolution.PayloadBudget, logger).
		OnTruncate(func(field string) {
			metrics.PayloadTruncationsTotal.WithLabelValues(field).Inc()
		})

	var sink ports.ReportSink = corpus.NopReportSink{}
	if cfg.Evolution.ReportPath != "" {
		sink = corpus.NewFileReportSink(cfg.Evolution.ReportPath)
	}

	prompts := services.NewPromptVersionService(store.prompts, store.txManager, idGen, logger)
	conversations := services.NewConversationService(store.messages, logger)

	runEvolution := usecases.NewRunEvolution(
		prompts,
		corpus.NewFileSource(cfg.Evolution.CorpusPath),
		services.NewBehaviorExtractor(editorLLM, sink, guard, logger),
		services.NewPromptRewriter(editorLLM, guard, logger),
		prompt.DefaultPolicy(),
		idGen,
		cfg.Evolution.RewriteAttempts,
		logger,
	)

	dispatcher := usecases.NewEvolutionDispatcher(baseCtx, runEvolution, cfg.Evolution.Mode, cfg.Evolution.Timeout(), logger)

	generateReply := usecases.NewGenerateReply(
		store.messages,
		prompts,
		conversations,
		chatLLM,
		dispatcher,
		idGen,
		usecases.GenerateReplyConfig{
			HistoryLimit:  cfg.Chat.HistoryLimit,
			FallbackReply: cfg.Chat.FallbackReply,
			Trigger:       prompt.NewTrigger(cfg.Evolution.Cadence),
		},
		logger,
	)

	return &app{
		store:         store,
		prompts:       prompts,
		conversations: conversations,
		runEvolution:  runEvolution,
		dispatcher:    dispatcher,
		generateReply: generateReply,
	}, nil
}

// seed writes the configured seed prompt as version 1 on an empty ledger
func (a *app) seed(ctx context.Context, content string) error {
	p, created, err := a.prompts.Seed(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to seed prompt ledger: %w", err)
	}
	if created {
		logger.Info("seeded prompt ledger", zap.String("prompt_id", p.ID))
	}
	return nil
}

// Close waits for in-flight evolutions, then releases the database
func (a *app) Close() {
	a.dispatcher.Wait()
	a.store.close()
}

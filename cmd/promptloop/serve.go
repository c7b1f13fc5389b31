package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/http"
	"github.com/longregen/promptloop/internal/adapters/tracing"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the promptloop HTTP API.

Endpoints:
  POST /api/v1/chat                     one chat turn
  GET  /api/v1/prompts[/active|/{id}]   prompt ledger
  POST /api/v1/prompts/{id}/activate    roll the active prompt (admin)
  POST /api/v1/evolutions               run an evolution now (admin)
  POST /api/v1/reset                    clear conversation history (admin)
  GET  /api/v1/sessions/{id}/messages   session history
  GET  /health, /metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting promptloop API server",
		zap.String("llm", cfg.LLM.URL),
		zap.String("model", cfg.LLM.Model),
		zap.String("editor_model", cfg.Editor().Model),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("evolution_mode", cfg.Evolution.Mode),
	)

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(ctx, tracing.Config{
			ServiceName:  cfg.Tracing.ServiceName,
			OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
			Writer:       os.Stderr,
		})
		if err != nil {
			logger.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Warn("error shutting down tracer", zap.Error(err))
				}
			}()
		}
	}

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.seed(ctx, cfg.Evolution.SeedPrompt); err != nil {
		return err
	}

	server := http.NewServer(cfg, http.Deps{
		GenerateReply: a.generateReply,
		RunEvolution:  a.runEvolution,
		Prompts:       a.prompts,
		Conversations: a.conversations,
		DB:            a.store.pinger,
		Version:       version,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	logger.Info("waiting for in-flight evolutions")
	return nil
}

package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/http/handlers"
	"github.com/longregen/promptloop/internal/adapters/http/middleware"
	"github.com/longregen/promptloop/internal/config"
	"github.com/longregen/promptloop/internal/ports"
)

// Deps are the application services the HTTP surface calls into
type Deps struct {
	GenerateReply ports.GenerateReplyUseCase
	RunEvolution  ports.RunEvolutionUseCase
	Prompts       ports.PromptVersionService
	Conversations ports.ConversationService
	// DB is optional; when set /health pings it
	DB      handlers.Pinger
	Version string
}

type Server struct {
	config     *config.Config
	deps       Deps
	logger     *zap.Logger
	router     *chi.Mux
	httpServer *http.Server
}

func NewServer(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: s.router,
		// Manual evolutions run synchronously and may take several LLM round trips
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Evolution.Timeout() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.CORS(s.config.Server.CORSOrigins))
	r.Use(middleware.Metrics)
	if s.config.Tracing.Enabled {
		r.Use(middleware.Tracing(s.config.Tracing.ServiceName, otelchi.WithChiRoutes(r)))
	}

	healthHandler := handlers.NewHealthHandler(s.deps.DB, s.deps.Version)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	chatHandler := handlers.NewChatHandler(s.deps.GenerateReply, s.logger)
	promptsHandler := handlers.NewPromptsHandler(s.deps.Prompts, s.logger)
	evolutionsHandler := handlers.NewEvolutionsHandler(s.deps.RunEvolution, s.logger)
	sessionsHandler := handlers.NewSessionsHandler(s.deps.Conversations, s.config.Chat.HistoryLimit, s.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", chatHandler.Send)
		r.Get("/prompts", promptsHandler.List)
		r.Get("/prompts/active", promptsHandler.Active)
		r.Get("/prompts/{id}", promptsHandler.Get)
		r.Get("/sessions/{id}/messages", sessionsHandler.Messages)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(s.config.Server.AdminToken))
			r.Post("/prompts/{id}/activate", promptsHandler.Activate)
			r.Post("/evolutions", evolutionsHandler.Run)
			r.Post("/reset", sessionsHandler.Reset)
		})
	})

	s.router = r
}

// Start blocks serving HTTP until Stop is called
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop is safe to call from another goroutine than Start, including before Start runs
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

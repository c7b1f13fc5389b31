// Package llm implements ports.LLMService on an OpenAI-compatible chat completions API.
package llm

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/circuitbreaker"
	"github.com/longregen/promptloop/internal/adapters/metrics"
	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/ports"
)

const (
	// LLMTimeout bounds a whole call including retries
	LLMTimeout = 2 * time.Minute
)

// Service implements ports.LLMService
type Service struct {
	name    string
	client  *Client
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// NewService wraps client with a circuit breaker. name labels the breaker in
// logs and metrics ("chat" or "editor").
func NewService(name string, client *Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		name:    name,
		client:  client,
		timeout: LLMTimeout,
		logger:  logger,
	}
	s.breaker = circuitbreaker.New(5, 30*time.Second,
		circuitbreaker.WithFailurePredicate(domain.IsLLMError),
		circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("LLM circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}),
	)
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(circuitbreaker.StateClosed))
	return s
}

func (s *Service) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return s.Chat(ctx, []ports.LLMMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userMessage},
	})
}

func (s *Service) Chat(ctx context.Context, messages []ports.LLMMessage) (string, error) {
	var reply string
	err := s.breaker.Execute(func() error {
		var err error
		reply, err = s.doChat(ctx, messages)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return "", domain.NewDomainError(domain.ErrLLMUnavailable, s.name+" circuit open")
	}
	return reply, err
}

func (s *Service) doChat(ctx context.Context, messages []ports.LLMMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.client.Model()
	start := time.Now()
	reply, err := s.client.Complete(ctx, convertMessages(messages))
	metrics.LLMRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(model, "error").Inc()
		return "", err
	}
	metrics.LLMRequestsTotal.WithLabelValues(model, "ok").Inc()
	return reply, nil
}

func convertMessages(messages []ports.LLMMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return out
}

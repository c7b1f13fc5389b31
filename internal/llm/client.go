package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/metrics"
	"github.com/longregen/promptloop/internal/adapters/retry"
	"github.com/longregen/promptloop/internal/config"
	"github.com/longregen/promptloop/internal/domain"
)

const tracerName = "github.com/longregen/promptloop/internal/llm"

// Client is an OpenAI-compatible chat completions client
type Client struct {
	api         *openai.Client
	baseURL     string
	model       string
	maxTokens   int
	temperature float32
	retryConfig retry.BackoffConfig
	logger      *zap.Logger
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	httpClient  *http.Client
	retryConfig retry.BackoffConfig
	logger      *zap.Logger
}

// WithHTTPClient replaces the default HTTP client (per-attempt timeout from config)
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = hc
	}
}

// WithRetryConfig overrides retry.LLMConfig
func WithRetryConfig(cfg retry.BackoffConfig) Option {
	return func(o *clientOptions) {
		o.retryConfig = cfg
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// NewClient creates a client for cfg. cfg.URL is the API base including /v1,
// for example https://api.groq.com/openai/v1.
func NewClient(cfg config.LLMConfig, opts ...Option) *Client {
	o := clientOptions{
		retryConfig: retry.LLMConfig(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Timeout()}
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/")
	openaiCfg := openai.DefaultConfig(cfg.APIKey)
	openaiCfg.BaseURL = baseURL
	openaiCfg.HTTPClient = o.httpClient

	return &Client{
		api:         openai.NewClientWithConfig(openaiCfg),
		baseURL:     baseURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		retryConfig: o.retryConfig,
		logger:      o.logger,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Complete sends messages and returns the first choice's content. Quota,
// provider, network and per-attempt timeout failures are retried.
func (c *Client) Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	cfg := c.retryConfig
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		metrics.LLMRetriesTotal.WithLabelValues(c.model).Inc()
		c.logger.Warn("retrying LLM request",
			zap.String("model", c.model),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	var content string
	err := retry.WithBackoffHTTP(ctx, cfg, func() (int, error) {
		resp, err := c.createChatCompletion(ctx, req)
		if err != nil {
			return statusCode(err), classify(ctx, err)
		}
		if len(resp.Choices) == 0 {
			return 0, domain.ErrLLMEmptyReply
		}
		content = resp.Choices[0].Message.Content
		return 0, nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) createChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "llm.chat", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.request.max_tokens", req.MaxTokens),
		attribute.Int("llm.request.messages", len(req.Messages)),
	)

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	span.SetAttributes(
		attribute.Int("llm.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int("llm.response.choices", len(resp.Choices)),
	)
	if len(resp.Choices) > 0 {
		span.SetAttributes(attribute.String("llm.response.finish_reason", string(resp.Choices[0].FinishReason)))
	}
	return resp, nil
}

// classify maps a transport error onto the domain LLM errors. The caller's own
// cancellation or deadline is kept in the chain so it is never retried.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", domain.ErrLLMTimeout, ctxErr)
		}
		return ctxErr
	}

	if status := statusCode(err); status != 0 {
		switch {
		case status == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", domain.ErrLLMQuota, err)
		case status >= 500:
			return fmt.Errorf("%w: %w", domain.ErrLLMProvider, err)
		default:
			return fmt.Errorf("LLM request rejected (status %d): %w", status, err)
		}
	}

	// Per-attempt client timeouts drop the context chain and stay retryable
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", domain.ErrLLMTimeout, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrLLMNetwork, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrLLMTimeout, err)
	}
	return err
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

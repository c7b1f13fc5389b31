package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longregen/promptloop/internal/adapters/retry"
	"github.com/longregen/promptloop/internal/config"
	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/ports"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fastRetry() retry.BackoffConfig {
	cfg := retry.LLMConfig()
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 2 * time.Millisecond
	return cfg
}

func completion(content string) string {
	return `{"id":"c1","object":"chat.completion","model":"test-model","choices":[{"index":0,"message":{"role":"assistant","content":` +
		mustJSON(content) + `},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(config.LLMConfig{
		URL:            server.URL + "/v1",
		APIKey:         "test-key",
		Model:          "test-model",
		MaxTokens:      64,
		Temperature:    0.5,
		TimeoutSeconds: 5,
	}, WithRetryConfig(fastRetry()))
	return NewService("test", client, nil)
}

func TestService_Generate(t *testing.T) {
	var got capturedRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("report body")))
	})

	reply, err := svc.Generate(context.Background(), "instruction", "Assistant Messages:\nhi")
	require.NoError(t, err)
	assert.Equal(t, "report body", reply)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "instruction", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestService_ChatKeepsMessageOrder(t *testing.T) {
	var got capturedRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(completion("ok")))
	})

	_, err := svc.Chat(context.Background(), []ports.LLMMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"},
	})
	require.NoError(t, err)

	var contents []string
	for _, m := range got.Messages {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"sys", "q1", "a1", "q2"}, contents)
}

func TestService_RetriesQuotaThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(completion("finally")))
	})

	reply, err := svc.Generate(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "finally", reply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestService_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		wantCalls int32
	}{
		{name: "quota", status: http.StatusTooManyRequests, wantErr: domain.ErrLLMQuota, wantCalls: 3},
		{name: "provider", status: http.StatusBadGateway, wantErr: domain.ErrLLMProvider, wantCalls: 3},
		{name: "bad request", status: http.StatusBadRequest, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"test"}}`))
			})

			_, err := svc.Generate(context.Background(), "s", "u")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.False(t, domain.IsLLMError(err))
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestService_EmptyChoices(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	})

	_, err := svc.Generate(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrLLMEmptyReply)
	assert.Equal(t, int32(1), calls.Load())
}

func TestService_CancelledContextIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(completion("late")))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, "s", "u")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}

func TestService_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"down","type":"server"}}`))
	})

	for i := 0; i < 5; i++ {
		_, err := svc.Generate(context.Background(), "s", "u")
		require.ErrorIs(t, err, domain.ErrLLMProvider)
	}
	before := calls.Load()

	_, err := svc.Generate(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Equal(t, before, calls.Load(), "open circuit must not reach the provider")
}

func TestClassify(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := classify(ctx, context.DeadlineExceeded)
	assert.ErrorIs(t, err, domain.ErrLLMTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, retry.IsRetryableError(err))
}

func TestService_RetriesPerAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(completion("too late")))
	}))
	t.Cleanup(server.Close)

	client := NewClient(config.LLMConfig{
		URL:            server.URL + "/v1",
		APIKey:         "test-key",
		Model:          "test-model",
		MaxTokens:      64,
		TimeoutSeconds: 5,
	}, WithRetryConfig(fastRetry()), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	svc := NewService("test", client, nil)

	_, err := svc.Generate(context.Background(), "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMTimeout)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClassify_ClientTimeoutIsRetryable(t *testing.T) {
	err := classify(context.Background(), fmt.Errorf("Client.Timeout exceeded: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, domain.ErrLLMTimeout)
	assert.True(t, retry.IsRetryableError(err))
}

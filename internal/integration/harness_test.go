package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/longregen/promptloop/internal/adapters/corpus"
	"github.com/longregen/promptloop/internal/adapters/id"
	"github.com/longregen/promptloop/internal/adapters/sqlite"
	"github.com/longregen/promptloop/internal/application/services"
	"github.com/longregen/promptloop/internal/application/usecases"
	"github.com/longregen/promptloop/internal/config"
	"github.com/longregen/promptloop/internal/llm"
	"github.com/longregen/promptloop/internal/ports"
	"github.com/longregen/promptloop/internal/prompt"
)

const behaviorReport = "Behavior Report:\n- Tone drift: replies open with greetings\n- Missing clarification"

const referenceCorpus = `[
  {"contact_id": "c-1", "conversation": [
    {"direction": "in", "text": "Can you check my application?", "message_id": 1},
    {"direction": "out", "text": "I can check the status if you share the reference number.", "message_id": 2},
    {"direction": "in", "text": "It's 4411", "message_id": 3},
    {"direction": "out", "text": "Reference 4411 is in review.", "message_id": 4}
  ]}
]`

func revision(n int) string {
	return fmt.Sprintf("Operate as a customer support agent. Revision %d. State only verified facts and ask a clarifying question when the request is ambiguous.", n)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// fakeLLM is an OpenAI-compatible chat completions endpoint that answers by
// stage: extractor and rewriter requests are recognised by their system
// instruction, everything else is a chat turn.
type fakeLLM struct {
	mu              sync.Mutex
	server          *httptest.Server
	candidates      []string
	rewrites        int
	chatRequests    [][]chatMessage
	extractorInputs []string
}

func newFakeLLM(t *testing.T, candidates ...string) *fakeLLM {
	t.Helper()
	f := &fakeLLM{candidates: candidates}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeLLM) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []chatMessage `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	var content string
	switch req.Messages[0].Content {
	case prompt.BehaviorExtractorInstruction:
		f.extractorInputs = append(f.extractorInputs, req.Messages[len(req.Messages)-1].Content)
		content = behaviorReport
	case prompt.PromptRewriterInstruction:
		f.rewrites++
		if len(f.candidates) > 0 {
			content = f.candidates[0]
			f.candidates = f.candidates[1:]
		} else {
			content = revision(f.rewrites + 1)
		}
	default:
		f.chatRequests = append(f.chatRequests, req.Messages)
		content = fmt.Sprintf("Answer %d.", len(f.chatRequests))
	}
	f.mu.Unlock()

	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (f *fakeLLM) chatSystemPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	systems := make([]string, len(f.chatRequests))
	for i, msgs := range f.chatRequests {
		systems[i] = msgs[0].Content
	}
	return systems
}

func (f *fakeLLM) lastChatRequest() []chatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatRequests[len(f.chatRequests)-1]
}

func (f *fakeLLM) extractorRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.extractorInputs...)
}

func (f *fakeLLM) rewriteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rewrites
}

// storageSet is one backend's repositories
type storageSet struct {
	prompts   ports.PromptRepository
	messages  ports.MessageRepository
	txManager ports.TransactionManager
}

func sqliteStorage(t *testing.T) storageSet {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "promptloop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return storageSet{
		prompts:   sqlite.NewPromptRepository(store),
		messages:  sqlite.NewMessageRepository(store),
		txManager: sqlite.NewTransactionManager(store),
	}
}

type harness struct {
	llm           *fakeLLM
	prompts       *services.PromptVersionService
	messages      ports.MessageRepository
	generateReply *usecases.GenerateReply
	dispatcher    *usecases.EvolutionDispatcher
	reportPath    string
	logs          *observer.ObservedLogs
}

// newHarness wires the production components against storage and a fake
// model endpoint, the same way the serve command does.
func newHarness(t *testing.T, storage storageSet, mode string, candidates ...string) *harness {
	t.Helper()

	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "conversations.json")
	require.NoError(t, os.WriteFile(corpusPath, []byte(referenceCorpus), 0o644))

	cfg := config.DefaultConfig()
	cfg.Evolution.Mode = mode
	cfg.Evolution.CorpusPath = corpusPath
	cfg.Evolution.ReportPath = filepath.Join(dir, "reports", "behavior_report.json")

	fake := newFakeLLM(t, candidates...)
	llmCfg := cfg.LLM
	llmCfg.URL = fake.server.URL + "/v1"
	llmCfg.APIKey = "test-key"
	llmCfg.Model = "test-model"

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	idGen := id.New()
	chatLLM := llm.NewService("chat", llm.NewClient(llmCfg), logger)
	editorLLM := llm.NewService("editor", llm.NewClient(llmCfg), logger)
	guard := prompt.NewPayloadGuard(cfg.Evolution.PayloadBudget, logger)

	prompts := services.NewPromptVersionService(storage.prompts, storage.txManager, idGen, logger)
	conversations := services.NewConversationService(storage.messages, logger)

	run := usecases.NewRunEvolution(
		prompts,
		corpus.NewFileSource(cfg.Evolution.CorpusPath),
		services.NewBehaviorExtractor(editorLLM, corpus.NewFileReportSink(cfg.Evolution.ReportPath), guard, logger),
		services.NewPromptRewriter(editorLLM, guard, logger),
		prompt.DefaultPolicy(),
		idGen,
		cfg.Evolution.RewriteAttempts,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher := usecases.NewEvolutionDispatcher(ctx, run, cfg.Evolution.Mode, cfg.Evolution.Timeout(), logger)
	t.Cleanup(func() {
		cancel()
		dispatcher.Wait()
	})

	generateReply := usecases.NewGenerateReply(
		storage.messages,
		prompts,
		conversations,
		chatLLM,
		dispatcher,
		idGen,
		usecases.GenerateReplyConfig{
			HistoryLimit: cfg.Chat.HistoryLimit,
			Trigger:      prompt.NewTrigger(cfg.Evolution.Cadence),
		},
		logger,
	)

	_, created, err := prompts.Seed(context.Background(), config.DefaultSeedPrompt)
	require.NoError(t, err)
	require.True(t, created)

	return &harness{
		llm:           fake,
		prompts:       prompts,
		messages:      storage.messages,
		generateReply: generateReply,
		dispatcher:    dispatcher,
		reportPath:    cfg.Evolution.ReportPath,
		logs:          logs,
	}
}

func (h *harness) send(t *testing.T, sessionID, content string) *ports.GenerateReplyOutput {
	t.Helper()
	out, err := h.generateReply.Execute(context.Background(), &ports.GenerateReplyInput{
		SessionID: sessionID,
		Content:   content,
	})
	require.NoError(t, err)
	return out
}

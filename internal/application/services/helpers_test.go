package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
)

type seqIDGenerator struct {
	prompts  atomic.Int64
	messages atomic.Int64
	runs     atomic.Int64
}

func (g *seqIDGenerator) GeneratePromptID() string {
	return fmt.Sprintf("ap_test%d", g.prompts.Add(1))
}

func (g *seqIDGenerator) GenerateMessageID() string {
	return fmt.Sprintf("am_test%d", g.messages.Add(1))
}

func (g *seqIDGenerator) GenerateRunID() string {
	return fmt.Sprintf("run-%d", g.runs.Add(1))
}

// memLedger is an in-memory PromptRepository and TransactionManager that
// enforces the unique version and single active constraints and restores a
// snapshot when a transaction fails.
type memLedger struct {
	mu      sync.Mutex
	prompts map[string]*models.Prompt

	// failActivate makes Activate fail, simulating a crash mid-promotion
	failActivate bool
}

func newMemLedger() *memLedger {
	return &memLedger{prompts: make(map[string]*models.Prompt)}
}

func (l *memLedger) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	snapshot := make(map[string]models.Prompt, len(l.prompts))
	for id, p := range l.prompts {
		snapshot[id] = *p
	}
	l.mu.Unlock()

	if err := fn(ctx); err != nil {
		l.mu.Lock()
		l.prompts = make(map[string]*models.Prompt, len(snapshot))
		for id, p := range snapshot {
			p := p
			l.prompts[id] = &p
		}
		l.mu.Unlock()
		return err
	}
	return nil
}

func (l *memLedger) Create(ctx context.Context, prompt *models.Prompt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.prompts {
		if p.Version == prompt.Version {
			return fmt.Errorf("duplicate version %d", prompt.Version)
		}
		if p.Active && prompt.Active {
			return fmt.Errorf("second active prompt")
		}
	}
	cp := *prompt
	l.prompts[prompt.ID] = &cp
	return nil
}

func (l *memLedger) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.prompts[id]
	if !ok {
		return nil, domain.ErrPromptNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *memLedger) sorted() []*models.Prompt {
	out := make([]*models.Prompt, 0, len(l.prompts))
	for _, p := range l.prompts {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out
}

func (l *memLedger) ListActive(ctx context.Context, limit int) ([]*models.Prompt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*models.Prompt
	for _, p := range l.sorted() {
		if p.Active && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (l *memLedger) GetLatestVersion(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	latest := 0
	for _, p := range l.prompts {
		if p.Version > latest {
			latest = p.Version
		}
	}
	return latest, nil
}

func (l *memLedger) DeactivateAll(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, p := range l.prompts {
		if p.Active {
			p.Active = false
			n++
		}
	}
	return n, nil
}

func (l *memLedger) Activate(ctx context.Context, id string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failActivate {
		return 0, fmt.Errorf("simulated failure")
	}
	p, ok := l.prompts[id]
	if !ok {
		return 0, nil
	}
	for _, other := range l.prompts {
		if other.Active && other.ID != id {
			return 0, fmt.Errorf("second active prompt")
		}
	}
	now := time.Now().UTC()
	p.Active = true
	p.ActivatedAt = &now
	return 1, nil
}

func (l *memLedger) CountActive(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range l.prompts {
		if p.Active {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) List(ctx context.Context, limit int) ([]*models.Prompt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.sorted()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *memLedger) LockLedger(ctx context.Context) error {
	return nil
}

// forceActive sets the active flag without any constraint checks
func (l *memLedger) forceActive(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts[id].Active = true
}

type mockLLMService struct {
	mock.Mock
}

func (m *mockLLMService) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	args := m.Called(ctx, systemPrompt, userMessage)
	return args.String(0), args.Error(1)
}

func (m *mockLLMService) Chat(ctx context.Context, messages []ports.LLMMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

type mockReportSink struct {
	mock.Mock
}

func (m *mockReportSink) Save(ctx context.Context, report *models.BehaviorReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

type mockMessageRepository struct {
	mock.Mock
}

func (m *mockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockMessageRepository) GetRecentBySession(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	args := m.Called(ctx, sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *mockMessageRepository) CountUserMessages(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *mockMessageRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

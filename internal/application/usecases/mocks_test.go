package usecases

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
)

type seqIDs struct {
	n atomic.Int64
}

func (g *seqIDs) GeneratePromptID() string  { return fmt.Sprintf("ap_%d", g.n.Add(1)) }
func (g *seqIDs) GenerateMessageID() string { return fmt.Sprintf("am_%d", g.n.Add(1)) }
func (g *seqIDs) GenerateRunID() string     { return fmt.Sprintf("run-%d", g.n.Add(1)) }

// mockMessageRepo is an in-memory conversation ledger
type mockMessageRepo struct {
	mu        sync.Mutex
	messages  []*models.Message
	createErr error
	countErr  error
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *mockMessageRepo) GetRecentBySession(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var session []*models.Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			session = append(session, msg)
		}
	}
	if len(session) > limit {
		session = session[len(session)-limit:]
	}
	return session, nil
}

func (m *mockMessageRepo) CountUserMessages(ctx context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, msg := range m.messages {
		if msg.SessionID == sessionID && msg.Role == models.MessageRoleUser {
			n++
		}
	}
	return n, nil
}

func (m *mockMessageRepo) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.messages))
	m.messages = nil
	return n, nil
}

func (m *mockMessageRepo) all() []*models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Message(nil), m.messages...)
}

type mockConversations struct {
	repo *mockMessageRepo
}

func (c *mockConversations) History(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	return c.repo.GetRecentBySession(ctx, sessionID, limit)
}

func (c *mockConversations) ResetHistory(ctx context.Context) (int64, error) {
	return c.repo.DeleteAll(ctx)
}

// mockPromptService is a minimal in-memory prompt ledger
type mockPromptService struct {
	mu      sync.Mutex
	prompts []*models.Prompt
	ids     seqIDs
	// promoteErr makes CreateAndPromote fail
	promoteErr error
}

func newMockPromptService(seed string) *mockPromptService {
	s := &mockPromptService{}
	if seed != "" {
		now := time.Now().UTC()
		s.prompts = append(s.prompts, &models.Prompt{ID: "ap_seed", Version: 1, Content: seed, Active: true, TriggeredBy: models.TriggerSeed, CreatedAt: now, ActivatedAt: &now})
	}
	return s
}

func (s *mockPromptService) GetActive(ctx context.Context) (*models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prompts {
		if p.Active {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNoActivePrompt
}

func (s *mockPromptService) GetLatestVersion(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts), nil
}

func (s *mockPromptService) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prompts {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPromptNotFound
}

func (s *mockPromptService) CreateVersion(ctx context.Context, content, parentID string, triggeredBy models.TriggerSource) (*models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.NewPrompt(s.ids.GeneratePromptID(), len(s.prompts)+1, content, triggeredBy, parentID)
	s.prompts = append(s.prompts, p)
	cp := *p
	return &cp, nil
}

func (s *mockPromptService) Promote(ctx context.Context, id string) error {
	_, err := s.ActivateByID(ctx, id)
	return err
}

func (s *mockPromptService) ActivateByID(ctx context.Context, id string) (*models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var target *models.Prompt
	for _, p := range s.prompts {
		if p.ID == id {
			target = p
		}
	}
	if target == nil {
		return nil, domain.ErrPromptNotFound
	}
	for _, p := range s.prompts {
		p.Active = p == target
	}
	cp := *target
	return &cp, nil
}

func (s *mockPromptService) CreateAndPromote(ctx context.Context, content, parentID string, triggeredBy models.TriggerSource) (*models.Prompt, error) {
	if s.promoteErr != nil {
		return nil, s.promoteErr
	}
	created, err := s.CreateVersion(ctx, content, parentID, triggeredBy)
	if err != nil {
		return nil, err
	}
	return s.ActivateByID(ctx, created.ID)
}

func (s *mockPromptService) Seed(ctx context.Context, content string) (*models.Prompt, bool, error) {
	active, err := s.GetActive(ctx)
	if err == nil {
		return active, false, nil
	}
	p, err := s.CreateAndPromote(ctx, content, "", models.TriggerSeed)
	return p, true, err
}

func (s *mockPromptService) List(ctx context.Context, limit int) ([]*models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Prompt, 0, len(s.prompts))
	for i := len(s.prompts) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.prompts[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *mockPromptService) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// mockLLM records chat requests and answers from chatFn
type mockLLM struct {
	mu     sync.Mutex
	chats  [][]ports.LLMMessage
	chatFn func(messages []ports.LLMMessage) (string, error)
}

func (m *mockLLM) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return m.Chat(ctx, []ports.LLMMessage{{Role: "system", Content: systemPrompt}, {Role: "user", Content: userMessage}})
}

func (m *mockLLM) Chat(ctx context.Context, messages []ports.LLMMessage) (string, error) {
	m.mu.Lock()
	m.chats = append(m.chats, messages)
	m.mu.Unlock()
	if m.chatFn == nil {
		return "reply", nil
	}
	return m.chatFn(messages)
}

func (m *mockLLM) calls() [][]ports.LLMMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]ports.LLMMessage(nil), m.chats...)
}

type mockDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *mockDispatcher) Dispatch(sessionID string, triggeredBy models.TriggerSource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, sessionID+":"+string(triggeredBy))
}

type mockCorpus struct {
	corpus models.Corpus
	err    error
}

func (c *mockCorpus) Load(ctx context.Context) (models.Corpus, error) {
	return c.corpus, c.err
}

type mockExtractor struct {
	report string
	err    error
	runIDs []string
}

func (e *mockExtractor) Extract(ctx context.Context, runID string, corpus models.Corpus) (string, error) {
	e.runIDs = append(e.runIDs, runID)
	return e.report, e.err
}

// mockRewriter returns outputs in order, repeating the last one
type mockRewriter struct {
	outputs []string
	err     error
	calls   int
	reports []string
}

func (r *mockRewriter) Rewrite(ctx context.Context, currentPrompt, report string) (string, error) {
	r.calls++
	r.reports = append(r.reports, report)
	if r.err != nil {
		return "", r.err
	}
	i := r.calls - 1
	if i >= len(r.outputs) {
		i = len(r.outputs) - 1
	}
	return r.outputs[i], nil
}

type mockRunEvolution struct {
	fn    func(ctx context.Context) (*models.Prompt, error)
	calls atomic.Int32
}

func (m *mockRunEvolution) Execute(ctx context.Context, triggeredBy models.TriggerSource) (*models.Prompt, error) {
	m.calls.Add(1)
	return m.fn(ctx)
}

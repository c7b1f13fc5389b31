package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/longregen/promptloop/internal/domain/models"
	"github.com/longregen/promptloop/internal/ports"
)

// setURLParam adds a URL parameter to the request context (chi router style)
func setURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type mockGenerateReply struct {
	mock.Mock
}

func (m *mockGenerateReply) Execute(ctx context.Context, input *ports.GenerateReplyInput) (*ports.GenerateReplyOutput, error) {
	args := m.Called(ctx, input)
	if out := args.Get(0); out != nil {
		return out.(*ports.GenerateReplyOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRunEvolution struct {
	mock.Mock
}

func (m *mockRunEvolution) Execute(ctx context.Context, triggeredBy models.TriggerSource) (*models.Prompt, error) {
	args := m.Called(ctx, triggeredBy)
	if p := args.Get(0); p != nil {
		return p.(*models.Prompt), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockConversations struct {
	mock.Mock
}

func (m *mockConversations) History(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	args := m.Called(ctx, sessionID, limit)
	if msgs := args.Get(0); msgs != nil {
		return msgs.([]*models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConversations) ResetHistory(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockPrompts struct {
	mock.Mock
}

func (m *mockPrompts) prompt(args mock.Arguments) (*models.Prompt, error) {
	if p := args.Get(0); p != nil {
		return p.(*models.Prompt), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPrompts) GetActive(ctx context.Context) (*models.Prompt, error) {
	return m.prompt(m.Called(ctx))
}

func (m *mockPrompts) GetLatestVersion(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockPrompts) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	return m.prompt(m.Called(ctx, id))
}

func (m *mockPrompts) CreateVersion(ctx context.Context, content, parentID string, triggeredBy models.TriggerSource) (*models.Prompt, error) {
	return m.prompt(m.Called(ctx, content, parentID, triggeredBy))
}

func (m *mockPrompts) Promote(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPrompts) ActivateByID(ctx context.Context, id string) (*models.Prompt, error) {
	return m.prompt(m.Called(ctx, id))
}

func (m *mockPrompts) CreateAndPromote(ctx context.Context, content, parentID string, triggeredBy models.TriggerSource) (*models.Prompt, error) {
	return m.prompt(m.Called(ctx, content, parentID, triggeredBy))
}

func (m *mockPrompts) Seed(ctx context.Context, content string) (*models.Prompt, bool, error) {
	args := m.Called(ctx, content)
	if p := args.Get(0); p != nil {
		return p.(*models.Prompt), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockPrompts) List(ctx context.Context, limit int) ([]*models.Prompt, error) {
	args := m.Called(ctx, limit)
	if p := args.Get(0); p != nil {
		return p.([]*models.Prompt), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

var errDatabaseDown = errors.New("connection refused")

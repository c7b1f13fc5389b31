package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedPrompt(t *testing.T, repo *PromptRepository, id string, version int, active bool) *models.Prompt {
	t.Helper()
	p := models.NewPrompt(id, version, "prompt "+id, models.TriggerManual, "")
	if active {
		now := time.Now().UTC()
		p.Active = true
		p.ActivatedAt = &now
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()
	assert.NoError(t, second.Ping(ctx))
}

func TestPromptRepository_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	repo := NewPromptRepository(store)
	ctx := context.Background()

	seed := seedPrompt(t, repo, "ap_1", 1, true)
	child := models.NewPrompt("ap_2", 2, "child", models.TriggerAutonomous, seed.ID)
	require.NoError(t, repo.Create(ctx, child))

	got, err := repo.GetByID(ctx, "ap_2")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "ap_1", got.ParentID)
	assert.Equal(t, models.TriggerAutonomous, got.TriggeredBy)
	assert.False(t, got.Active)
	assert.Nil(t, got.ActivatedAt)
	assert.WithinDuration(t, child.CreatedAt, got.CreatedAt, time.Millisecond)

	latest, err := repo.GetLatestVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, latest)

	all, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ap_2", all[0].ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestPromptRepository_EmptyLedger(t *testing.T) {
	repo := NewPromptRepository(openTestStore(t))
	ctx := context.Background()

	latest, err := repo.GetLatestVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, latest)

	active, err := repo.ListActive(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestPromptRepository_UniqueVersion(t *testing.T) {
	repo := NewPromptRepository(openTestStore(t))
	seedPrompt(t, repo, "ap_1", 1, false)

	err := repo.Create(context.Background(), models.NewPrompt("ap_dup", 1, "dup", models.TriggerManual, ""))
	assert.Error(t, err)
}

func TestPromptRepository_SingleActiveIndex(t *testing.T) {
	repo := NewPromptRepository(openTestStore(t))
	ctx := context.Background()
	seedPrompt(t, repo, "ap_1", 1, true)
	seedPrompt(t, repo, "ap_2", 2, false)

	// Activating a second row without deactivating the first violates the index
	_, err := repo.Activate(ctx, "ap_2")
	assert.Error(t, err)

	n, err := repo.DeactivateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Activate(ctx, "ap_2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := repo.GetByID(ctx, "ap_2")
	require.NoError(t, err)
	assert.NotNil(t, got.ActivatedAt)
}

func TestTransactionManager_RollsBack(t *testing.T) {
	store := openTestStore(t)
	repo := NewPromptRepository(store)
	txm := NewTransactionManager(store)
	ctx := context.Background()
	seedPrompt(t, repo, "ap_1", 1, true)

	boom := errors.New("boom")
	err := txm.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := repo.DeactivateAll(txCtx); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "previous active prompt must survive a rolled back promotion")
}

func TestTransactionManager_PanicRollsBack(t *testing.T) {
	store := openTestStore(t)
	repo := NewPromptRepository(store)
	txm := NewTransactionManager(store)
	ctx := context.Background()

	err := txm.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := repo.Create(txCtx, models.NewPrompt("ap_1", 1, "seed", models.TriggerSeed, "")); err != nil {
			return err
		}
		panic("boom")
	})
	require.Error(t, err)

	latest, err := repo.GetLatestVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, latest)
}

func TestMessageRepository_SessionHistory(t *testing.T) {
	store := openTestStore(t)
	prompts := NewPromptRepository(store)
	repo := NewMessageRepository(store)
	ctx := context.Background()
	seedPrompt(t, prompts, "ap_1", 1, true)

	for i := 1; i <= 6; i++ {
		require.NoError(t, repo.Create(ctx, models.NewUserMessage(fmt.Sprintf("am_u%d", i), "s1", fmt.Sprintf("q%d", i))))
		require.NoError(t, repo.Create(ctx, models.NewAssistantMessage(fmt.Sprintf("am_a%d", i), "s1", fmt.Sprintf("a%d", i), "ap_1")))
	}
	require.NoError(t, repo.Create(ctx, models.NewUserMessage("am_other", "s2", "other session")))

	history, err := repo.GetRecentBySession(ctx, "s1", 4)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, []string{"q5", "a5", "q6", "a6"}, []string{history[0].Content, history[1].Content, history[2].Content, history[3].Content})
	assert.Equal(t, "ap_1", history[1].PromptID)
	assert.Empty(t, history[0].PromptID)

	count, err := repo.CountUserMessages(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	deleted, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(13), deleted)

	count, err = repo.CountUserMessages(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMessageRepository_RejectsInvalid(t *testing.T) {
	repo := NewMessageRepository(openTestStore(t))

	err := repo.Create(context.Background(), models.NewAssistantMessage("am_1", "s1", "x", ""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = repo.Create(context.Background(), models.NewUserMessage("am_2", "", "x"))
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

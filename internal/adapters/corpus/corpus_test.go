package corpus

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
)

func TestFileSource_LoadJSON(t *testing.T) {
	corpus, err := NewFileSource(filepath.Join("testdata", "conversations.json")).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, corpus, 2)
	assert.Equal(t, "c-1", corpus[0].ContactID)

	// turns are reordered by message_id within a conversation
	assert.Equal(t, []string{
		"I can check the status if you share the reference number.",
		"Reference 4411 is in review.",
		"Usually two weeks.",
		"Is there anything else?",
	}, corpus.OutboundTexts())
}

func TestFileSource_LoadYAML(t *testing.T) {
	corpus, err := NewFileSource(filepath.Join("testdata", "conversations.yaml")).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, corpus, 1)
	require.Len(t, corpus[0].Turns, 2)
	assert.Equal(t, models.DirectionOutbound, corpus[0].Turns[1].Direction)
	assert.Equal(t, int64(2), corpus[0].Turns[1].SequenceID)
}

func TestFileSource_Missing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json")).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCorpusMissing)

	_, err = NewFileSource("").Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCorpusMissing)
}

func TestFileSource_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileSource(path).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCorpusMissing)
}

func TestFileReportSink_Save(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "behavior_report.json")
	sink := NewFileReportSink(path)
	generated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, sink.Save(context.Background(), &models.BehaviorReport{RunID: "run-1", Report: "first", GeneratedAt: generated}))
	require.NoError(t, sink.Save(context.Background(), &models.BehaviorReport{RunID: "run-2", Report: "second", GeneratedAt: generated}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "run-2", doc["run_id"])
	assert.Equal(t, "second", doc["report"])
	assert.Equal(t, "2026-01-02T03:04:05Z", doc["generated_at"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileReportSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "r.json")
	assert.ErrorIs(t, NewFileReportSink(path).Save(ctx, &models.BehaviorReport{}), context.Canceled)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

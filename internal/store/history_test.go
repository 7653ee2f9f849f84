package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxclone/internal/voice"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := NewHistoryStore(filepath.Join(t.TempDir(), "sub", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport() *voice.BatchReport {
	r := &voice.BatchReport{
		TotalTexts:     3,
		Processed:      3,
		ReferenceAudio: "ref.wav",
		OutputDir:      "/tmp/out",
		Results: []voice.CloneResult{
			{ID: "a", Text: "một", Success: true, OutputPath: "/tmp/out/minimax_a.wav", AudioURL: "https://cdn/a"},
			{ID: "b", Text: "hai", Success: false, Err: "generation failed"},
			{ID: "c", Text: "ba", Success: true, OutputPath: "/tmp/out/minimax_c.wav"},
		},
	}
	r.Finalize()
	return r
}

func TestRecordAndListRuns(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.RecordRun("texts.txt", sampleReport())
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, "texts.txt", run.TextFile)
	assert.Equal(t, "ref.wav", run.ReferenceAudio)
	assert.Equal(t, 3, run.TotalTexts)
	assert.Equal(t, 1, run.Failed)
	assert.InDelta(t, 66.67, run.SuccessRate, 0.01)
}

func TestRunItems(t *testing.T) {
	s := newTestStore(t)
	runID, err := s.RecordRun("texts.txt", sampleReport())
	require.NoError(t, err)

	items, err := s.RunItems(runID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Insertion order preserved.
	assert.Equal(t, "a", items[0].TextID)
	assert.Equal(t, "b", items[1].TextID)
	assert.Equal(t, "c", items[2].TextID)
	assert.True(t, items[0].Success)
	assert.False(t, items[1].Success)
	assert.Equal(t, "generation failed", items[1].Err)
	assert.Equal(t, "https://cdn/a", items[0].AudioURL)
}

func TestFailedItems(t *testing.T) {
	s := newTestStore(t)
	runID, err := s.RecordRun("texts.txt", sampleReport())
	require.NoError(t, err)

	failed, err := s.FailedItems(runID)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].TextID)
}

func TestListRunsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.RecordRun("texts.txt", sampleReport())
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestRunItemsUnknownRun(t *testing.T) {
	s := newTestStore(t)
	items, err := s.RunItems("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, items)
}

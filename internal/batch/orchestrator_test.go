package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"voxclone/internal/voice"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeTexts(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "texts.txt")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

func TestRun_AllSucceed(t *testing.T) {
	textFile := writeTexts(t, "a\nb\nc\n")
	mock := &voice.MockCloner{}
	o := New(mock, Options{})

	report, err := o.Run(context.Background(), textFile, "ref.wav", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalTexts)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 100.0, report.SuccessRate)
	assert.Equal(t, "ref.wav", report.ReferenceAudio)
}

func TestRun_SuccessRateProportional(t *testing.T) {
	textFile := writeTexts(t, "a\nb\nc\nd\ne\n")
	mock := &voice.MockCloner{
		Outcomes: map[string]string{
			"b": "generation failed",
			"d": "download failed",
			"e": "generation failed",
		},
	}
	o := New(mock, Options{})

	report, err := o.Run(context.Background(), textFile, "ref.wav", t.TempDir())
	require.NoError(t, err)

	// 2 successes of 5 total.
	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 3, report.Failed)
	assert.InDelta(t, 40.0, report.SuccessRate, 1e-9)
}

func TestRun_AllFail(t *testing.T) {
	textFile := writeTexts(t, "a\nb\n")
	mock := &voice.MockCloner{Default: "generation failed"}
	o := New(mock, Options{})

	report, err := o.Run(context.Background(), textFile, "ref.wav", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.SuccessRate)
	assert.Equal(t, 2, report.Failed)
}

func TestRun_PartialFailureDoesNotAbort(t *testing.T) {
	textFile := writeTexts(t, "first\nbroken\nlast\n")
	mock := &voice.MockCloner{Outcomes: map[string]string{"broken": "boom"}}
	o := New(mock, Options{})

	report, err := o.Run(context.Background(), textFile, "ref.wav", t.TempDir())
	require.NoError(t, err)

	// The failing middle item must not prevent the last one.
	require.Len(t, report.Results, 3)
	assert.Equal(t, []string{"first", "broken", "last"}, mock.Calls)
	assert.True(t, report.Results[0].Success)
	assert.False(t, report.Results[1].Success)
	assert.Equal(t, "boom", report.Results[1].Err)
	assert.True(t, report.Results[2].Success)
}

func TestRun_ResultsPreserveInputOrder(t *testing.T) {
	var lines string
	for i := 0; i < 20; i++ {
		lines += fmt.Sprintf("id%02d\ttext %d\n", i, i)
	}
	textFile := writeTexts(t, lines)
	o := New(&voice.MockCloner{}, Options{})

	report, err := o.Run(context.Background(), textFile, "ref.wav", t.TempDir())
	require.NoError(t, err)
	require.Len(t, report.Results, 20)
	for i, res := range report.Results {
		assert.Equal(t, fmt.Sprintf("id%02d", i), res.ID)
	}
}

func TestRun_InitFailureFailsFast(t *testing.T) {
	textFile := writeTexts(t, "a\nb\n")
	mock := &voice.MockCloner{InitErr: fmt.Errorf("google login: %w", voice.ErrAuthentication)}
	o := New(mock, Options{})

	report, err := o.Run(context.Background(), textFile, "ref.wav", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, voice.ErrAuthentication)
	assert.Equal(t, 0, report.Processed)
	assert.Empty(t, report.Results)
	assert.NotEmpty(t, report.Err)
	assert.Empty(t, mock.Calls)
}

func TestRun_MissingTextFile(t *testing.T) {
	o := New(&voice.MockCloner{}, Options{})

	report, err := o.Run(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), "ref.wav", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 0, report.Processed)
}

func TestRun_EmptyFileYieldsEmptyReport(t *testing.T) {
	textFile := writeTexts(t, "\n\n")
	o := New(&voice.MockCloner{}, Options{})

	report, err := o.Run(context.Background(), textFile, "ref.wav", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalTexts)
	assert.Equal(t, 0.0, report.SuccessRate)
}

func TestRun_MaxBatchSizeCapsItems(t *testing.T) {
	textFile := writeTexts(t, "a\nb\nc\nd\n")
	mock := &voice.MockCloner{}
	o := New(mock, Options{MaxBatchSize: 2})

	report, err := o.Run(context.Background(), textFile, "ref.wav", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalTexts)
	assert.Equal(t, 2, report.Processed)
	assert.Len(t, mock.Calls, 2)
	// Rate stays relative to the full input set.
	assert.InDelta(t, 50.0, report.SuccessRate, 1e-9)
}

func TestRun_DelayBetweenItems(t *testing.T) {
	textFile := writeTexts(t, "a\nb\nc\n")
	o := New(&voice.MockCloner{}, Options{Delay: 30 * time.Millisecond})

	start := time.Now()
	_, err := o.Run(context.Background(), textFile, "ref.wav", t.TempDir())
	require.NoError(t, err)
	// Two gaps between three items.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestRun_ContextCancellationStopsBatch(t *testing.T) {
	textFile := writeTexts(t, "a\nb\nc\n")
	ctx, cancel := context.WithCancel(context.Background())
	mock := &voice.MockCloner{}
	o := New(mock, Options{Delay: 50 * time.Millisecond})

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	report, err := o.Run(ctx, textFile, "ref.wav", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	// Results so far are still reported.
	assert.NotEmpty(t, report.Results)
	assert.Less(t, len(report.Results), 3)
}

func TestRun_OutputPathsKeyedByIdentifier(t *testing.T) {
	textFile := writeTexts(t, "utt 01\thello\nutt/02\tworld\n")
	mock := &voice.MockCloner{}
	outDir := t.TempDir()
	o := New(mock, Options{})

	report, err := o.Run(context.Background(), textFile, "ref.wav", outDir)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, filepath.Join(outDir, "minimax_utt 01.wav"), report.Results[0].OutputPath)
	// Path-hostile runes are stripped.
	assert.Equal(t, filepath.Join(outDir, "minimax_utt02.wav"), report.Results[1].OutputPath)
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"with space", "with space"},
		{"dash-under_score", "dash-under_score"},
		{"slash/../../etc", "slashetc"},
		{"trailing  ", "trailing"},
		{"việt-01", "vit-01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeID(tt.in), "input %q", tt.in)
	}
}

func TestRun_ErrorsAreStrings(t *testing.T) {
	// CloneResult carries a human-readable error string, never a Go error.
	textFile := writeTexts(t, "a\n")
	mock := &voice.MockCloner{Default: "upload rejected"}
	o := New(mock, Options{})

	report, err := o.Run(context.Background(), textFile, "ref.wav", t.TempDir())
	require.NoError(t, err)
	require.False(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "upload rejected", report.Results[0].Err)
}

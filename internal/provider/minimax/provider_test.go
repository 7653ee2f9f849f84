package minimax

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxclone/internal/browser"
	"voxclone/internal/config"
	"voxclone/internal/voice"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Provider.GoogleEmail = "test@example.com"
	cfg.Provider.GooglePassword = "secret"
	return New(cfg, browser.NewManager(browser.DefaultConfig()))
}

func TestDownloadAudio(t *testing.T) {
	p := newTestProvider(t)
	outDir := t.TempDir()

	t.Run("writes response body to output path", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("RIFF fake wav payload"))
		}))
		defer srv.Close()

		out := filepath.Join(outDir, "nested", "out.wav")
		require.NoError(t, p.downloadAudio(context.Background(), srv.URL, out))

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "RIFF fake wav payload", string(data))
	})

	t.Run("rejects empty body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		out := filepath.Join(outDir, "empty.wav")
		err := p.downloadAudio(context.Background(), srv.URL, out)
		require.Error(t, err)
		assert.ErrorIs(t, err, voice.ErrAutomation)
		assert.NoFileExists(t, out)
	})

	t.Run("rejects non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		err := p.downloadAudio(context.Background(), srv.URL, filepath.Join(outDir, "x.wav"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404")
	})
}

func TestCheckReference(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		err := checkReference(filepath.Join(t.TempDir(), "nope.wav"))
		require.Error(t, err)
		assert.ErrorIs(t, err, voice.ErrUpload)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.wav")
		require.NoError(t, os.WriteFile(path, nil, 0644))
		err := checkReference(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, voice.ErrUpload)
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ref.wav")
		require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0644))
		assert.NoError(t, checkReference(path))
	})
}

func TestInitRequiresCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	// No credentials configured and no env overrides applied.
	p := New(cfg, browser.NewManager(browser.DefaultConfig()))

	err := p.Init(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, voice.ErrConfiguration)
}

func TestLanguageOptionXPath(t *testing.T) {
	assert.Equal(t, `.//div[contains(text(),'Vietnamese')]`, languageOptionXPath("Vietnamese"))
}

func TestCloneWithMetadataEstimatesDuration(t *testing.T) {
	cfg := config.DefaultConfig()
	p := New(cfg, browser.NewManager(browser.DefaultConfig()))

	// Init fails (no credentials), but the result still carries the text
	// metadata and estimate for the report.
	res := p.CloneWithMetadata(context.Background(), "twenty four characters..", "ref.wav", "out.wav")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Err)
	assert.InDelta(t, 2.0, res.EstimatedDuration, 0.1)
	assert.Equal(t, "twenty four characters..", res.Text)
	assert.Equal(t, "out.wav", res.OutputPath)
}

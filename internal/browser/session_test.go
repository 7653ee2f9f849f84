package browser

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, 1920, cfg.GetViewportWidth())
	assert.Equal(t, 1080, cfg.GetViewportHeight())
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout())

	cfg = Config{ViewportWidth: 800, ViewportHeight: 600, NavigationTimeoutMs: 5000}
	assert.Equal(t, 800, cfg.GetViewportWidth())
	assert.Equal(t, 600, cfg.GetViewportHeight())
	assert.Equal(t, 5*time.Second, cfg.NavigationTimeout())
}

func TestSessionStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browser", "session.json")
	state := &sessionState{
		SavedAt: time.Now(),
		URL:     "https://example.com/app",
		Cookies: []*proto.NetworkCookieParam{
			{Name: "sid", Value: "abc123", Domain: "example.com", Path: "/", Secure: true},
		},
		LocalStorage:   `{"token":"xyz"}`,
		SessionStorage: `{}`,
	}
	require.NoError(t, writeState(path, state))

	loaded, err := readState(path)
	require.NoError(t, err)
	assert.Equal(t, state.URL, loaded.URL)
	require.Len(t, loaded.Cookies, 1)
	assert.Equal(t, "sid", loaded.Cookies[0].Name)
	assert.Equal(t, "abc123", loaded.Cookies[0].Value)
	assert.Equal(t, `{"token":"xyz"}`, loaded.LocalStorage)
}

func TestLoadState(t *testing.T) {
	t.Run("missing store file is not an error", func(t *testing.T) {
		m := NewManager(Config{SessionStore: filepath.Join(t.TempDir(), "nope.json")})
		m.mu.Lock()
		err := m.loadStateLocked()
		m.mu.Unlock()
		require.NoError(t, err)
		assert.False(t, m.HasPersistedState())
	})

	t.Run("persisted cookies are detected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, writeState(path, &sessionState{
			Cookies: []*proto.NetworkCookieParam{{Name: "sid", Value: "v", Domain: "d"}},
		}))

		m := NewManager(Config{SessionStore: path})
		m.mu.Lock()
		err := m.loadStateLocked()
		m.mu.Unlock()
		require.NoError(t, err)
		assert.True(t, m.HasPersistedState())
	})

	t.Run("empty store path disables persistence", func(t *testing.T) {
		m := NewManager(Config{})
		m.mu.Lock()
		err := m.loadStateLocked()
		m.mu.Unlock()
		require.NoError(t, err)
		assert.False(t, m.HasPersistedState())
	})
}

func TestManagerBeforeStart(t *testing.T) {
	m := NewManager(DefaultConfig())
	assert.False(t, m.IsConnected())
	assert.Empty(t, m.ControlURL())
	assert.Empty(t, m.URL())

	_, err := m.Page()
	require.Error(t, err)
}

// Package browser owns the Chrome instance that drives the voice-cloning web
// UI. It manages a single page, exposes the small set of DOM operations the
// provider facade needs, and persists cookies plus web storage across runs so
// a completed login survives process restarts.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"voxclone/internal/logging"
)

// Config holds browser configuration.
type Config struct {
	DebuggerURL         string   `json:"debugger_url"`
	Launch              []string `json:"launch"`
	Headless            bool     `json:"headless"`
	ViewportWidth       int      `json:"viewport_width"`
	ViewportHeight      int      `json:"viewport_height"`
	NavigationTimeoutMs int      `json:"navigation_timeout_ms"`
	SessionStore        string   `json:"session_store"`
	ScreenshotDir       string   `json:"screenshot_dir"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            false,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		NavigationTimeoutMs: 30000,
	}
}

// GetViewportWidth returns viewport width.
func (c Config) GetViewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1920
	}
	return c.ViewportWidth
}

// GetViewportHeight returns viewport height.
func (c Config) GetViewportHeight() int {
	if c.ViewportHeight == 0 {
		return 1080
	}
	return c.ViewportHeight
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// sessionState is the on-disk snapshot of an authenticated browser session.
type sessionState struct {
	SavedAt        time.Time                  `json:"saved_at"`
	URL            string                     `json:"url,omitempty"`
	Cookies        []*proto.NetworkCookieParam `json:"cookies,omitempty"`
	LocalStorage   string                     `json:"local_storage,omitempty"`
	SessionStorage string                     `json:"session_storage,omitempty"`
}

// Manager owns the Chrome instance and its single working page.
type Manager struct {
	cfg        Config
	mu         sync.RWMutex
	browser    *rod.Browser
	page       *rod.Page
	controlURL string
	restored   *sessionState
}

// NewManager creates a manager; the browser is not launched until Start.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Start connects to an existing Chrome or launches a new one, opens the
// working page, and restores any persisted cookies and storage. Calling Start
// on a healthy manager is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("stale browser connection detected, reconnecting")
		_ = m.browser.Close()
		m.browser = nil
		m.page = nil
		m.controlURL = ""
	}

	if err := m.loadStateLocked(); err != nil {
		return fmt.Errorf("load session state: %w", err)
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" && len(m.cfg.Launch) > 0 {
		bin := m.cfg.Launch[0]
		launch := launcher.New().Bin(bin).Headless(m.cfg.Headless)
		for _, rawFlag := range m.cfg.Launch[1:] {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				launch = launch.Set(flags.Flag(name), val)
			} else {
				launch = launch.Set(flags.Flag(name))
			}
		}
		url, err := launch.Launch()
		if err != nil {
			// Fallback without extra flags
			fallback := launcher.New().Bin(bin).Headless(m.cfg.Headless)
			alt, altErr := fallback.Launch()
			if altErr != nil {
				return fmt.Errorf("launch chrome: %w (fallback: %v)", err, altErr)
			}
			controlURL = alt
		} else {
			controlURL = url
		}
	}

	if controlURL == "" {
		url, err := launcher.New().Headless(m.cfg.Headless).Launch()
		if err != nil {
			return fmt.Errorf("no debugger_url and failed to launch: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.GetViewportWidth(),
		Height:            m.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		logging.BrowserWarn("failed to set viewport: %v", err)
	}

	if m.restored != nil && len(m.restored.Cookies) > 0 {
		if err := page.SetCookies(m.restored.Cookies); err != nil {
			logging.BrowserWarn("failed to restore cookies: %v", err)
		} else {
			logging.Browser("restored %d cookies from %s", len(m.restored.Cookies), m.cfg.SessionStore)
		}
	}

	m.browser = browser
	m.page = page
	m.controlURL = controlURL
	logging.Browser("connected to chrome at %s", controlURL)
	return nil
}

// ControlURL returns the WebSocket debugger URL.
func (m *Manager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected returns whether the browser is connected.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// Page returns the working page. The page is owned by the manager; callers
// must not Close it.
func (m *Manager) Page() (*rod.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.page == nil {
		return nil, errors.New("browser not started")
	}
	return m.page, nil
}

// Browser returns the underlying rod browser.
func (m *Manager) Browser() (*rod.Browser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.browser == nil {
		return nil, errors.New("browser not started")
	}
	return m.browser, nil
}

// Shutdown persists session state and closes the browser.
func (m *Manager) Shutdown(ctx context.Context) error {
	if err := m.SaveState(ctx); err != nil {
		logging.BrowserWarn("failed to persist session state: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.page != nil {
		_ = m.page.Close()
		m.page = nil
	}
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	m.controlURL = ""
	return err
}

// Navigate navigates the working page and waits for load.
func (m *Manager) Navigate(ctx context.Context, url string) error {
	page, err := m.Page()
	if err != nil {
		return err
	}
	p := page.Context(ctx).Timeout(m.cfg.NavigationTimeout())
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s to load: %w", url, err)
	}
	return nil
}

// URL returns the working page's current URL, or "" before Start.
func (m *Manager) URL() string {
	page, err := m.Page()
	if err != nil {
		return ""
	}
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Element waits up to timeout for a selector and returns the element.
func (m *Manager) Element(ctx context.Context, selector string, timeout time.Duration) (*rod.Element, error) {
	page, err := m.Page()
	if err != nil {
		return nil, err
	}
	el, err := page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el, nil
}

// Click waits for a selector and clicks it.
func (m *Manager) Click(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := m.Element(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// Input waits for a selector, clears it, and types text into it.
func (m *Manager) Input(ctx context.Context, selector, text string, timeout time.Duration) error {
	el, err := m.Element(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input into %q: %w", selector, err)
	}
	return nil
}

// SetFiles attaches local files to a file input.
func (m *Manager) SetFiles(ctx context.Context, selector string, paths []string, timeout time.Duration) error {
	el, err := m.Element(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if err := el.SetFiles(paths); err != nil {
		return fmt.Errorf("set files on %q: %w", selector, err)
	}
	return nil
}

// Text waits for a selector and returns its visible text.
func (m *Manager) Text(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	el, err := m.Element(ctx, selector, timeout)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("read text of %q: %w", selector, err)
	}
	return text, nil
}

// Attribute waits for a selector and returns the named attribute, or "" when
// the attribute is absent.
func (m *Manager) Attribute(ctx context.Context, selector, name string, timeout time.Duration) (string, error) {
	el, err := m.Element(ctx, selector, timeout)
	if err != nil {
		return "", err
	}
	val, err := el.Attribute(name)
	if err != nil {
		return "", fmt.Errorf("read attribute %s of %q: %w", name, selector, err)
	}
	if val == nil {
		return "", nil
	}
	return *val, nil
}

// WaitVisible waits until a selector is present and visible.
func (m *Manager) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := m.Element(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("element %q not visible: %w", selector, err)
	}
	return nil
}

// ElementX waits up to timeout for an XPath expression and returns the
// element. The cloning form nests its controls without stable ids or classes,
// so most provider selectors are XPath.
func (m *Manager) ElementX(ctx context.Context, xpath string, timeout time.Duration) (*rod.Element, error) {
	page, err := m.Page()
	if err != nil {
		return nil, err
	}
	el, err := page.Context(ctx).Timeout(timeout).ElementX(xpath)
	if err != nil {
		return nil, fmt.Errorf("element %q not found: %w", xpath, err)
	}
	return el, nil
}

// FoundX reports whether an XPath expression matches right now, without
// waiting. Used by poll loops that check for a result between sleeps.
func (m *Manager) FoundX(xpath string) bool {
	page, err := m.Page()
	if err != nil {
		return false
	}
	els, err := page.ElementsX(xpath)
	return err == nil && len(els) > 0
}

// Exists reports whether a selector appears within timeout. Lookup errors
// other than a timeout are swallowed; absence is the answer either way.
func (m *Manager) Exists(ctx context.Context, selector string, timeout time.Duration) bool {
	_, err := m.Element(ctx, selector, timeout)
	return err == nil
}

// Screenshot captures the working page into the screenshot directory and
// returns the written path. Used by the facade to record what the page looked
// like when a stage failed.
func (m *Manager) Screenshot(ctx context.Context, label string) (string, error) {
	page, err := m.Page()
	if err != nil {
		return "", err
	}
	data, err := page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}

	dir := m.cfg.ScreenshotDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", time.Now().Format("20060102_150405"), label))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// SaveState snapshots cookies and web storage to the session store file.
func (m *Manager) SaveState(ctx context.Context) error {
	if m.cfg.SessionStore == "" {
		return nil
	}
	page, err := m.Page()
	if err != nil {
		return nil // nothing to save before Start
	}

	cookiesRes, err := proto.NetworkGetCookies{}.Call(page.Context(ctx))
	if err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookiesRes.Cookies))
	for _, c := range cookiesRes.Cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
			Priority: c.Priority,
		})
	}

	state := sessionState{
		SavedAt:        time.Now(),
		URL:            m.URL(),
		Cookies:        params,
		LocalStorage:   snapshotStorage(page, "localStorage"),
		SessionStorage: snapshotStorage(page, "sessionStorage"),
	}
	return writeState(m.cfg.SessionStore, &state)
}

// RestoreStorage replays persisted localStorage and sessionStorage onto the
// current page. Cookies are set at Start; storage needs a loaded document on
// the right origin, so the facade calls this after the first navigation.
func (m *Manager) RestoreStorage(ctx context.Context) {
	m.mu.RLock()
	state := m.restored
	m.mu.RUnlock()
	if state == nil {
		return
	}
	page, err := m.Page()
	if err != nil {
		return
	}
	restoreStorage(page.Context(ctx), state.LocalStorage, state.SessionStorage)
}

// HasPersistedState reports whether a usable session snapshot was loaded.
func (m *Manager) HasPersistedState() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.restored != nil && len(m.restored.Cookies) > 0
}

// loadStateLocked reads the persisted snapshot. Caller must hold the lock.
func (m *Manager) loadStateLocked() error {
	if m.cfg.SessionStore == "" {
		return nil
	}
	state, err := readState(m.cfg.SessionStore)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	m.restored = state
	return nil
}

func writeState(path string, state *sessionState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Cookies carry auth tokens; keep the file private.
	return os.WriteFile(path, data, 0o600)
}

func readState(path string) (*sessionState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &state, nil
}

func snapshotStorage(page *rod.Page, store string) string {
	jsFunc := fmt.Sprintf(`() => {
		try {
			const out = {};
			for (const key of Object.keys(%s)) {
				out[key] = %s.getItem(key);
			}
			return JSON.stringify(out);
		} catch (e) {
			return "{}";
		}
	}`, store, store)

	res, err := page.Evaluate(&rod.EvalOptions{
		JS:           jsFunc,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil || res == nil || res.Value.Nil() {
		return "{}"
	}
	return res.Value.String()
}

func restoreStorage(page *rod.Page, localJSON, sessionJSON string) {
	_, _ = page.Evaluate(&rod.EvalOptions{
		JS: `
		(local, session) => {
			try {
				const l = JSON.parse(local || "{}");
				Object.entries(l).forEach(([k, v]) => localStorage.setItem(k, v));
			} catch (e) {}
			try {
				const s = JSON.parse(session || "{}");
				Object.entries(s).forEach(([k, v]) => sessionStorage.setItem(k, v));
			} catch (e) {}
		}
		`,
		JSArgs:       []interface{}{localJSON, sessionJSON},
		ByValue:      true,
		AwaitPromise: true,
		UserGesture:  true,
	})
}

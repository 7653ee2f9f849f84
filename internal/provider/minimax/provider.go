// Package minimax drives the MiniMax voice-cloning web UI through a browser
// session. It implements voice.Cloner: authentication via Google OAuth,
// reference audio upload, generation, and download of the produced audio.
package minimax

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"voxclone/internal/batch"
	"voxclone/internal/browser"
	"voxclone/internal/config"
	"voxclone/internal/logging"
	"voxclone/internal/voice"
)

// Provider is the facade over the voices-cloning page. A single provider owns
// a single browser session; it is not safe for concurrent Clone calls.
type Provider struct {
	cfg     *config.Config
	session *browser.Manager
	client  *http.Client

	mu               sync.Mutex
	initialized      bool
	authenticated    bool
	languageSelected bool
}

var _ voice.Cloner = (*Provider)(nil)
var _ voice.Synthesizer = (*Provider)(nil)

// New creates a provider over an existing browser manager. The manager may
// already be started (e.g. attached to a long-lived session); Init handles
// both cases.
func New(cfg *config.Config, session *browser.Manager) *Provider {
	return &Provider{
		cfg:     cfg,
		session: session,
		client:  &http.Client{Timeout: cfg.DownloadTimeout()},
	}
}

// Init brings the facade up: validates credentials, starts the browser,
// navigates to the cloning page, and authenticates. Idempotent; later calls
// on a healthy provider return nil immediately.
func (p *Provider) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	if err := p.cfg.Validate(); err != nil {
		return err
	}

	if err := p.session.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}

	logging.Session("navigating to %s", p.cfg.Provider.BaseURL)
	if err := p.session.Navigate(ctx, p.cfg.Provider.BaseURL); err != nil {
		return fmt.Errorf("navigate to cloning page: %w", err)
	}

	// Storage can only be replayed once a document on the right origin is
	// loaded, so this follows the first navigation.
	p.session.RestoreStorage(ctx)

	if !p.authenticated {
		if err := p.authenticate(ctx); err != nil {
			p.screenshot(ctx, "auth_error")
			return err
		}
		p.authenticated = true
	}

	p.initialized = true
	return nil
}

// Shutdown persists the session and closes the browser.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.initialized = false
	p.authenticated = false
	p.languageSelected = false
	p.mu.Unlock()
	return p.session.Shutdown(ctx)
}

// Clone synthesizes text in the voice of referenceAudio and writes the result
// to outputPath. The boolean mirrors Success in CloneWithMetadata.
func (p *Provider) Clone(ctx context.Context, text, referenceAudio, outputPath string) (bool, error) {
	if err := p.Init(ctx); err != nil {
		return false, err
	}

	audioURL, err := p.generateVoice(ctx, text, referenceAudio)
	if err != nil {
		return false, err
	}

	if err := p.downloadAudio(ctx, audioURL, outputPath); err != nil {
		return false, err
	}
	return true, nil
}

// CloneWithMetadata clones text and returns a structured result. Failures are
// reported inside the result; the method never panics the batch.
func (p *Provider) CloneWithMetadata(ctx context.Context, text, referenceAudio, outputPath string) voice.CloneResult {
	res := voice.CloneResult{
		Text:       text,
		OutputPath: outputPath,
		EstimatedDuration: voice.EstimateDuration(
			text,
			p.cfg.Provider.CharsPerSecond,
			p.cfg.Provider.MinDuration,
			p.cfg.Provider.MaxDuration,
		),
	}

	if err := p.Init(ctx); err != nil {
		res.Err = err.Error()
		return res
	}

	audioURL, err := p.generateVoice(ctx, text, referenceAudio)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.AudioURL = audioURL

	if err := p.downloadAudio(ctx, audioURL, outputPath); err != nil {
		res.Err = err.Error()
		return res
	}

	res.Success = true
	return res
}

// SynthesizeWithMetadata generates text against the reference audio already
// uploaded in the current page, without re-uploading anything.
func (p *Provider) SynthesizeWithMetadata(ctx context.Context, text, outputPath string) voice.CloneResult {
	return p.CloneWithMetadata(ctx, text, "", outputPath)
}

// CloneBatch runs the whole text file against one reference audio, producing
// one audio file per record under outputDir.
func (p *Provider) CloneBatch(ctx context.Context, textFile, referenceAudio, outputDir string) (*voice.BatchReport, error) {
	opts := batch.Options{Delay: p.cfg.BatchDelay()}
	if p.cfg.Batch.Enabled {
		opts.MaxBatchSize = p.cfg.Batch.MaxBatchSize
	}
	return batch.New(p, opts).Run(ctx, textFile, referenceAudio, outputDir)
}

// generateVoice uploads the reference (unless empty), ensures the target
// language is selected, and runs one generation. It returns the URL of the
// produced audio.
func (p *Provider) generateVoice(ctx context.Context, text, referenceAudio string) (string, error) {
	if referenceAudio == "" {
		// No reference given: a previous upload must still be present.
		if !p.session.FoundX(durationBadgeXPath) {
			return "", fmt.Errorf("%w: no reference audio uploaded and none provided", voice.ErrUpload)
		}
		logging.Upload("using previously uploaded reference audio")
	} else {
		if err := p.uploadReference(ctx, referenceAudio); err != nil {
			p.screenshot(ctx, "upload_error")
			return "", err
		}
	}

	// The dropdown keeps its value for the life of the page.
	if !p.languageSelected {
		if err := p.selectLanguage(ctx, p.cfg.Provider.Language); err != nil {
			p.screenshot(ctx, "language_error")
			return "", err
		}
		p.languageSelected = true
	}

	audioURL, err := p.generateFromText(ctx, text)
	if err != nil {
		p.screenshot(ctx, "generation_error")
		return "", err
	}
	return audioURL, nil
}

// screenshot records the page state for a failed stage. Best effort.
func (p *Provider) screenshot(ctx context.Context, label string) {
	path, err := p.session.Screenshot(ctx, label)
	if err != nil {
		logging.BrowserDebug("screenshot %s failed: %v", label, err)
		return
	}
	logging.Browser("saved failure screenshot: %s", path)
}

// checkReference validates the reference audio file before upload.
func checkReference(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: reference audio %s: %v", voice.ErrUpload, path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: reference audio %s is empty", voice.ErrUpload, path)
	}
	return nil
}

package minimax

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"voxclone/internal/logging"
	"voxclone/internal/voice"
)

const (
	uploadPollInterval   = 2 * time.Second
	generatePollInterval = 1500 * time.Millisecond
	dropdownScrollTries  = 20
)

// uploadReference attaches the reference audio to the cloning form and waits
// for the site to finish processing it. A duration badge appearing next to
// the file name is the completion signal.
func (p *Provider) uploadReference(ctx context.Context, path string) error {
	if err := checkReference(path); err != nil {
		return err
	}

	// The badge survives across generations; a visible one means this
	// reference (or an earlier one) is already in place.
	if p.session.FoundX(durationBadgeXPath) {
		logging.Upload("reference audio already uploaded")
		return nil
	}

	logging.Upload("uploading reference audio: %s", path)
	if err := p.setFilesX(ctx, fileInputXPath, path); err != nil {
		return fmt.Errorf("%w: %v", voice.ErrUpload, err)
	}

	deadline := time.Now().Add(p.cfg.MaxWaitTime())
	for time.Now().Before(deadline) {
		if p.session.FoundX(durationBadgeXPath) {
			logging.Upload("reference audio uploaded")
			return nil
		}
		if msg := p.pageError(); msg != "" {
			return fmt.Errorf("%w: %s", voice.ErrUpload, msg)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(uploadPollInterval):
		}
	}

	return fmt.Errorf("%w: upload did not complete within %s", voice.ErrTimeout, p.cfg.MaxWaitTime())
}

// selectLanguage opens the language dropdown and picks the configured entry.
// The ant-design dropdown virtualizes its list, so finding the entry may take
// a few arrow-key scrolls.
func (p *Provider) selectLanguage(ctx context.Context, language string) error {
	logging.Generate("selecting language: %s", language)

	dropdown, err := p.session.ElementX(ctx, languageDropdownXPath, p.cfg.ElementTimeout())
	if err != nil {
		return fmt.Errorf("%w: language dropdown not found: %v", voice.ErrAutomation, err)
	}
	if err := dropdown.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: open language dropdown: %v", voice.ErrAutomation, err)
	}

	menu, err := p.session.ElementX(ctx, languageMenuXPath, p.cfg.ElementTimeout())
	if err != nil {
		return fmt.Errorf("%w: language menu did not open: %v", voice.ErrAutomation, err)
	}

	optionXPath := languageOptionXPath(language)
	for i := 0; i < dropdownScrollTries; i++ {
		option, err := menu.ElementX(optionXPath)
		if err != nil {
			// Not rendered yet; scroll the virtual list forward.
			_ = menu.Type(input.ArrowDown)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(300 * time.Millisecond):
			}
			continue
		}

		_ = option.ScrollIntoView()
		if err := option.Click(proto.InputMouseButtonLeft, 1); err != nil {
			logging.GenerateWarn("language option click failed, retrying: %v", err)
			continue
		}

		time.Sleep(500 * time.Millisecond)
		if text, err := dropdown.Text(); err == nil && strings.Contains(text, language) {
			logging.Generate("language selection confirmed")
			return nil
		}
	}

	return fmt.Errorf("%w: could not select language %q", voice.ErrAutomation, language)
}

// generateFromText types the text, ticks the consent checkbox, and clicks
// Generate until an audio element shows up. The site sometimes swallows the
// first click, hence the retry loop: each attempt re-finds the button, clicks,
// and waits a bounded window for the result.
func (p *Provider) generateFromText(ctx context.Context, text string) (string, error) {
	logging.Generate("generating voice for text: %.50s", text)

	textarea, err := p.session.ElementX(ctx, textareaXPath, p.cfg.ElementTimeout())
	if err != nil {
		return "", fmt.Errorf("%w: textarea not found: %v", voice.ErrAutomation, err)
	}
	if err := textarea.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("%w: focus textarea: %v", voice.ErrAutomation, err)
	}
	// Clear leftover text from the previous item before typing.
	if err := textarea.SelectAllText(); err == nil {
		_ = textarea.Type(input.Backspace)
	}
	if err := textarea.Input(text); err != nil {
		return "", fmt.Errorf("%w: enter text: %v", voice.ErrAutomation, err)
	}

	p.tickConsentCheckbox(ctx)

	overallDeadline := time.Now().Add(p.cfg.MaxWaitTime())
	retries := p.cfg.Provider.GenerateRetries
	if retries < 1 {
		retries = 1
	}

	for attempt := 1; attempt <= retries; attempt++ {
		button, err := p.session.ElementX(ctx, generateButtonXPath, p.cfg.ElementTimeout())
		if err != nil {
			return "", fmt.Errorf("%w: generate button not found: %v", voice.ErrAutomation, err)
		}
		_ = button.ScrollIntoView()

		if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
			logging.GenerateWarn("generate click failed on attempt %d/%d: %v", attempt, retries, err)
		} else {
			logging.Generate("clicked generate (attempt %d/%d)", attempt, retries)
		}

		attemptDeadline := time.Now().Add(p.cfg.GenerateRetryWait())
		if attemptDeadline.After(overallDeadline) {
			attemptDeadline = overallDeadline
		}

		for time.Now().Before(attemptDeadline) {
			if url := p.resultAudioURL(); url != "" {
				logging.Generate("audio ready: %s", url)
				return url, nil
			}
			if msg := p.pageError(); msg != "" {
				logging.GenerateError("error message after generate: %s", msg)
				break
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(generatePollInterval):
			}
		}

		if time.Now().After(overallDeadline) {
			return "", fmt.Errorf("%w: generation exceeded %s", voice.ErrTimeout, p.cfg.MaxWaitTime())
		}
		logging.Generate("no audio yet, retrying generate click")
	}

	return "", fmt.Errorf("%w: no audio produced after %d generate attempts", voice.ErrAutomation, retries)
}

// tickConsentCheckbox ensures the terms checkbox is checked. The checkbox
// occasionally detaches mid-click when the form re-renders, so one retry.
func (p *Provider) tickConsentCheckbox(ctx context.Context) {
	for attempt := 1; attempt <= 2; attempt++ {
		checkbox, err := p.session.ElementX(ctx, checkboxXPath, p.cfg.ElementTimeout())
		if err != nil {
			logging.GenerateWarn("consent checkbox not found: %v", err)
			return
		}
		checked, err := checkbox.Property("checked")
		if err == nil && checked.Bool() {
			return
		}
		if err := checkbox.Click(proto.InputMouseButtonLeft, 1); err == nil {
			return
		}
		logging.GenerateWarn("checkbox click failed on attempt %d, retrying", attempt)
		time.Sleep(500 * time.Millisecond)
	}
	logging.GenerateWarn("could not tick consent checkbox")
}

// resultAudioURL returns the src of the generated audio element, or "" while
// generation is still in flight.
func (p *Provider) resultAudioURL() string {
	page, err := p.session.Page()
	if err != nil {
		return ""
	}
	els, err := page.ElementsX(resultAudioXPath)
	if err != nil || len(els) == 0 {
		return ""
	}
	src, err := els.First().Attribute("src")
	if err != nil || src == nil {
		return ""
	}
	return *src
}

// pageError returns the text of a visible error toast, or "".
func (p *Provider) pageError() string {
	page, err := p.session.Page()
	if err != nil {
		return ""
	}
	els, err := page.ElementsX(errorMessageXPath)
	if err != nil || len(els) == 0 {
		return ""
	}
	text, err := els.First().Text()
	if err != nil {
		return "page reported an error"
	}
	return strings.TrimSpace(text)
}

// setFilesX attaches a file to an input found by XPath.
func (p *Provider) setFilesX(ctx context.Context, xpath, path string) error {
	el, err := p.session.ElementX(ctx, xpath, p.cfg.ElementTimeout())
	if err != nil {
		return err
	}
	return el.SetFiles([]string{path})
}

package minimax

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"voxclone/internal/logging"
	"voxclone/internal/voice"
)

const (
	captchaWaitTimeout = 2 * time.Minute
	oauthReturnTimeout = 60 * time.Second
	modalCheckTimeout  = 5 * time.Second
)

// authenticate signs into the site with Google OAuth. A session restored from
// disk may already be logged in; in that case the Sign In button never
// renders and the flow reduces to closing the welcome modal.
func (p *Provider) authenticate(ctx context.Context) error {
	logging.Auth("starting authentication")

	if err := p.waitForCaptcha(ctx); err != nil {
		logging.AuthWarn("captcha did not clear: %v", err)
	}

	if p.session.HasPersistedState() && !p.session.FoundX(signInButtonXPath) {
		logging.Auth("restored session is already authenticated")
		p.closeWelcomeModal(ctx)
		return nil
	}

	signIn, err := p.session.ElementX(ctx, signInButtonXPath, p.cfg.ElementTimeout())
	if err != nil {
		return fmt.Errorf("%w: sign-in button not found: %v", voice.ErrAuthentication, err)
	}
	if err := signIn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: click sign-in: %v", voice.ErrAuthentication, err)
	}

	page, err := p.session.Page()
	if err != nil {
		return err
	}

	// The Google button opens a popup window; arm the wait before clicking.
	waitPopup := page.WaitOpen()

	googleBtn, err := p.session.ElementX(ctx, googleButtonXPath, p.cfg.ElementTimeout())
	if err != nil {
		return fmt.Errorf("%w: google sign-in button not found: %v", voice.ErrAuthentication, err)
	}
	if err := googleBtn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: click google sign-in: %v", voice.ErrAuthentication, err)
	}

	popup, err := waitPopup()
	if err != nil {
		return fmt.Errorf("%w: oauth popup did not open: %v", voice.ErrAuthentication, err)
	}

	logging.Auth("entering google credentials")
	oauth := popup.Context(ctx).Timeout(p.cfg.ElementTimeout())

	email, err := oauth.Element(emailInputSelector)
	if err != nil {
		return fmt.Errorf("%w: email input not found: %v", voice.ErrAuthentication, err)
	}
	if err := email.Input(p.cfg.Provider.GoogleEmail); err != nil {
		return fmt.Errorf("%w: enter email: %v", voice.ErrAuthentication, err)
	}
	if err := clickSelector(oauth, emailNextSelector); err != nil {
		return fmt.Errorf("%w: advance past email: %v", voice.ErrAuthentication, err)
	}

	password, err := oauth.Element(passwordInputSelector)
	if err != nil {
		return fmt.Errorf("%w: password input not found: %v", voice.ErrAuthentication, err)
	}
	if err := password.Input(p.cfg.Provider.GooglePassword); err != nil {
		return fmt.Errorf("%w: enter password: %v", voice.ErrAuthentication, err)
	}
	if err := clickSelector(oauth, passwordNextSelector); err != nil {
		return fmt.Errorf("%w: submit password: %v", voice.ErrAuthentication, err)
	}

	// Google closes the popup when the flow succeeds; wait for the window
	// count to drop back to one.
	if err := p.waitForPopupClose(ctx); err != nil {
		return err
	}

	p.closeWelcomeModal(ctx)

	logging.Auth("authentication successful")
	return nil
}

// waitForCaptcha polls until no challenge overlay is visible. The challenge
// usually resolves itself; a human can also solve it in a headed browser.
func (p *Provider) waitForCaptcha(ctx context.Context) error {
	if !p.captchaVisible() {
		return nil
	}

	logging.Auth("captcha detected, waiting for it to resolve")
	deadline := time.Now().Add(captchaWaitTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
		if !p.captchaVisible() {
			logging.Auth("captcha resolved")
			return nil
		}
	}

	p.screenshot(ctx, "captcha_timeout")
	return fmt.Errorf("%w: captcha did not resolve within %s", voice.ErrTimeout, captchaWaitTimeout)
}

func (p *Provider) captchaVisible() bool {
	page, err := p.session.Page()
	if err != nil {
		return false
	}
	els, err := page.Elements(captchaSelector)
	if err != nil {
		return false
	}
	for _, el := range els {
		if visible, err := el.Visible(); err == nil && visible {
			return true
		}
	}
	return false
}

// waitForPopupClose waits for the browser to return to a single window.
func (p *Provider) waitForPopupClose(ctx context.Context) error {
	b, err := p.session.Browser()
	if err != nil {
		return err
	}

	deadline := time.Now().Add(oauthReturnTimeout)
	for time.Now().Before(deadline) {
		pages, err := b.Pages()
		if err == nil && len(pages) <= 1 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: oauth window did not close within %s", voice.ErrAuthentication, oauthReturnTimeout)
}

// closeWelcomeModal dismisses the Get Started modal shown after first login.
// Its absence means the account has seen the page before.
func (p *Provider) closeWelcomeModal(ctx context.Context) {
	modal, err := p.session.ElementX(ctx, getStartedModalXPath, modalCheckTimeout)
	if err != nil {
		logging.AuthDebug("no welcome modal found")
		return
	}
	closeBtn, err := modal.ElementX(modalCloseButtonXPath)
	if err != nil {
		logging.AuthWarn("welcome modal has no close button: %v", err)
		return
	}
	if err := closeBtn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		logging.AuthWarn("failed to close welcome modal: %v", err)
		return
	}
	logging.Auth("closed welcome modal")
}

// clickSelector finds a CSS selector on a scoped page and clicks it.
func clickSelector(page *rod.Page, selector string) error {
	el, err := page.Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

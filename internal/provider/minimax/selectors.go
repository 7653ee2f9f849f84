package minimax

// Selectors for the voices-cloning page and the Google OAuth popup. The form
// nests its controls without stable ids below #voices-cloning-form, so most of
// these are XPath.
const (
	// Main page
	signInButtonXPath      = `//*[@id='video-user-component']//div[contains(text(),'Sign In')]`
	googleButtonXPath      = `//button[.//span[contains(text(), 'Continue with Google')]]`
	getStartedModalXPath   = `//section[contains(@class,'live-modal')]`
	modalCloseButtonXPath  = `.//header/button`

	// Google OAuth popup
	emailInputSelector    = `#identifierId`
	emailNextSelector     = `#identifierNext`
	passwordInputSelector = `input[name="Passwd"]`
	passwordNextSelector  = `#passwordNext`

	// CAPTCHA overlays (Cloudflare turnstile and friends)
	captchaSelector = `#TktRY1, div[role='alert'], .cb-c, iframe[title*='challenge'], iframe[src*='turnstile'], iframe[src*='cloudflare']`

	// Cloning form. The duration badge (a span rendering seconds as 12'')
	// only appears once a reference upload has been processed.
	fileInputXPath        = `//*[@id="voices-cloning-form"]//input[@type="file"]`
	durationBadgeXPath    = `//*[@id='voices-cloning-form']//div[contains(@class,'flex-1')]//span[contains(text(), "''")]`
	languageDropdownXPath = `//*[@id='voices-cloning-form']//div[contains(@class,'ant-select') and contains(@class,'custom-select')]`
	languageMenuXPath     = `//div[contains(@class,'ant-select-dropdown') and not(contains(@style,'display: none'))]`
	textareaXPath         = `//*[@id='voices-cloning-form']//textarea`
	checkboxXPath         = `//*[@id='voices-cloning-form']//input[@type='checkbox']`
	generateButtonXPath   = `//*[@id='voices-cloning-form']//button[.//span[normalize-space()='Generate'] or .//span[normalize-space()='Regenerate']]`
	resultAudioXPath      = `//h2[contains(text(), 'Generated Voice Results')]/following::audio[1]`
	errorMessageXPath     = `//div[contains(@class,'error') or contains(@class,'ant-message-error')]`
)

// languageOptionXPath matches a dropdown entry by its label, relative to the
// open menu.
func languageOptionXPath(language string) string {
	return `.//div[contains(text(),'` + language + `')]`
}

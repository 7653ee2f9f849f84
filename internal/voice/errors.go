package voice

import "errors"

// Failure taxonomy for the cloning pipeline. Per-item failures in batch mode
// are recorded in CloneResult.Err and never abort the batch; these sentinels
// surface through the error chain for init-time failures, which are fatal for
// the whole operation.
var (
	// ErrConfiguration indicates a missing or invalid required setting,
	// typically absent Google credentials.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthentication indicates the login or session handshake failed.
	ErrAuthentication = errors.New("authentication failed")

	// ErrUpload indicates the reference audio was missing, empty, or
	// rejected by the site.
	ErrUpload = errors.New("reference audio upload failed")

	// ErrTimeout indicates generation or download exceeded its configured
	// bound.
	ErrTimeout = errors.New("operation timed out")

	// ErrAutomation indicates the page structure no longer matches the
	// expected selectors.
	ErrAutomation = errors.New("page automation failed")
)

package voice

import (
	"context"
	"sync"
)

// MockCloner is a scripted Cloner for exercising batch logic without a real
// browser session. Outcomes are keyed by text; unknown texts use Default.
type MockCloner struct {
	mu sync.Mutex

	// Outcomes maps text to the error string to report ("" = success).
	Outcomes map[string]string
	// Default applies when a text has no scripted outcome.
	Default string
	// InitErr, when set, is returned before any item is attempted.
	InitErr error
	// EstimatedDuration is echoed into every result.
	EstimatedDuration float64

	// Calls records the texts in invocation order.
	Calls []string
}

// Init returns InitErr, mirroring the facade's session bring-up hook.
func (m *MockCloner) Init(ctx context.Context) error {
	return m.InitErr
}

func (m *MockCloner) outcome(text string) string {
	if m.Outcomes != nil {
		if msg, ok := m.Outcomes[text]; ok {
			return msg
		}
	}
	return m.Default
}

// Clone reports the scripted boolean outcome for text.
func (m *MockCloner) Clone(ctx context.Context, text, referenceAudio, outputPath string) (bool, error) {
	if m.InitErr != nil {
		return false, m.InitErr
	}
	res := m.CloneWithMetadata(ctx, text, referenceAudio, outputPath)
	return res.Success, nil
}

// CloneWithMetadata reports the scripted detailed outcome for text.
func (m *MockCloner) CloneWithMetadata(ctx context.Context, text, referenceAudio, outputPath string) CloneResult {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	m.mu.Unlock()

	if m.InitErr != nil {
		return CloneResult{Text: text, OutputPath: outputPath, Err: m.InitErr.Error()}
	}
	if msg := m.outcome(text); msg != "" {
		return CloneResult{Text: text, OutputPath: outputPath, Err: msg}
	}
	return CloneResult{
		Text:              text,
		Success:           true,
		OutputPath:        outputPath,
		AudioURL:          "https://example.invalid/audio/" + outputPath,
		EstimatedDuration: m.EstimatedDuration,
	}
}

var _ Cloner = (*MockCloner)(nil)

// Package voice defines the value types and the cloning capability contract
// shared by the batch orchestrator and the provider facades.
package voice

import "context"

// CloneResult is the per-item outcome of one clone attempt.
// Immutable once emitted by a provider.
type CloneResult struct {
	ID                string  `json:"id"`
	Text              string  `json:"text,omitempty"`
	Success           bool    `json:"success"`
	OutputPath        string  `json:"output_path,omitempty"`
	AudioURL          string  `json:"audio_url,omitempty"`
	EstimatedDuration float64 `json:"estimated_duration,omitempty"`
	Err               string  `json:"error,omitempty"`
}

// BatchReport aggregates the per-item results of one batch run.
// Results preserve input order; Processed never exceeds TotalTexts.
type BatchReport struct {
	TotalTexts     int           `json:"total_texts"`
	Processed      int           `json:"processed"`
	Failed         int           `json:"failed"`
	Results        []CloneResult `json:"results"`
	SuccessRate    float64       `json:"success_rate"`
	ReferenceAudio string        `json:"reference_audio,omitempty"`
	OutputDir      string        `json:"output_directory,omitempty"`
	Err            string        `json:"error,omitempty"`
}

// Succeeded counts the successful results.
func (r *BatchReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// Finalize recomputes the derived counters from Results against TotalTexts.
// SuccessRate is a percentage in [0,100]; zero totals yield zero.
func (r *BatchReport) Finalize() {
	succeeded := r.Succeeded()
	r.Failed = len(r.Results) - succeeded
	if r.TotalTexts > 0 {
		r.SuccessRate = float64(succeeded) / float64(r.TotalTexts) * 100
	} else {
		r.SuccessRate = 0
	}
}

// Cloner is the capability the batch orchestrator depends on. Implementations
// drive an external generation workflow (browser automation, upload, wait,
// download) behind this contract so batch logic can be verified with a double.
//
// Clone and CloneWithMetadata are one logical operation with two result
// shapes: a bare boolean, or a detailed record whose Err field is empty on
// success.
type Cloner interface {
	Clone(ctx context.Context, text, referenceAudio, outputPath string) (bool, error)
	CloneWithMetadata(ctx context.Context, text, referenceAudio, outputPath string) CloneResult
}

// Synthesizer generates speech with a reference voice already present in the
// provider session, without re-uploading one.
type Synthesizer interface {
	SynthesizeWithMetadata(ctx context.Context, text, outputPath string) CloneResult
}

// EstimateDuration estimates audio length from text size, clamped to
// [minDur, maxDur] seconds. charsPerSecond <= 0 falls back to 12.
func EstimateDuration(text string, charsPerSecond, minDur, maxDur float64) float64 {
	if charsPerSecond <= 0 {
		charsPerSecond = 12
	}
	est := float64(len([]rune(text))) / charsPerSecond
	if est < minDur {
		return minDur
	}
	if est > maxDur {
		return maxDur
	}
	return est
}

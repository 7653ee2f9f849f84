// Package batch runs text records through a voice.Cloner one at a time and
// aggregates per-item outcomes into a report.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxclone/internal/dataset"
	"voxclone/internal/logging"
	"voxclone/internal/voice"
)

// Options controls batching behavior.
type Options struct {
	// MaxBatchSize caps items processed per invocation. Zero means no cap.
	MaxBatchSize int
	// Delay is the pause inserted between items to avoid upstream rate
	// limiting.
	Delay time.Duration
	// FilePrefix prefixes generated output filenames. Defaults to "minimax".
	FilePrefix string
}

// Orchestrator drives sequential batch cloning. It owns no browser state of
// its own; the cloner is the single mutable resource and must not be shared
// with another orchestrator while a run is in flight.
type Orchestrator struct {
	cloner voice.Cloner
	opts   Options
}

// New creates an orchestrator over the given cloner.
func New(cloner voice.Cloner, opts Options) *Orchestrator {
	if opts.FilePrefix == "" {
		opts.FilePrefix = "minimax"
	}
	return &Orchestrator{cloner: cloner, opts: opts}
}

// Run loads records from textFile and clones each one against referenceAudio,
// writing audio files under outputDir keyed by record identifier.
//
// A single item's failure is recorded in its CloneResult and does not abort
// the loop. Failures before any item is attempted (unreadable text file,
// facade initialization) fail the whole batch with Processed == 0.
// Results are reported in input order.
func (o *Orchestrator) Run(ctx context.Context, textFile, referenceAudio, outputDir string) (*voice.BatchReport, error) {
	report := &voice.BatchReport{
		ReferenceAudio: referenceAudio,
		OutputDir:      outputDir,
		Results:        []voice.CloneResult{},
	}

	records, err := dataset.Load(textFile)
	if err != nil {
		report.Err = err.Error()
		return report, fmt.Errorf("load batch input: %w", err)
	}
	report.TotalTexts = len(records)

	if len(records) == 0 {
		logging.BatchWarn("no texts loaded from %s", textFile)
		report.Finalize()
		return report, nil
	}

	if o.opts.MaxBatchSize > 0 && len(records) > o.opts.MaxBatchSize {
		logging.Batch("capping batch at %d of %d records", o.opts.MaxBatchSize, len(records))
		records = records[:o.opts.MaxBatchSize]
	}

	// Bring the facade up before touching any item so an auth or config
	// failure fails the whole batch with Processed == 0.
	if init, ok := o.cloner.(initializer); ok {
		if err := init.Init(ctx); err != nil {
			report.Err = err.Error()
			report.Finalize()
			return report, fmt.Errorf("initialize provider: %w", err)
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		report.Err = err.Error()
		return report, fmt.Errorf("create output directory: %w", err)
	}

	timer := logging.StartTimer(logging.CategoryBatch, "batch run")
	defer timer.Stop()

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			report.Err = err.Error()
			report.Finalize()
			return report, err
		}

		logging.Batch("processing %d/%d: %s", i+1, len(records), rec.ID)
		outputPath := filepath.Join(outputDir, o.outputName(rec.ID))

		res := o.cloner.CloneWithMetadata(ctx, rec.Text, referenceAudio, outputPath)
		res.ID = rec.ID
		if res.Text == "" {
			res.Text = rec.Text
		}
		report.Results = append(report.Results, res)
		report.Processed++

		if !res.Success {
			logging.BatchError("item %s failed: %s", rec.ID, res.Err)
		}

		if o.opts.Delay > 0 && i < len(records)-1 {
			select {
			case <-ctx.Done():
				report.Err = ctx.Err().Error()
				report.Finalize()
				return report, ctx.Err()
			case <-time.After(o.opts.Delay):
			}
		}
	}

	report.Finalize()
	logging.Batch("batch complete: %d/%d successful (%.1f%%)",
		report.Succeeded(), report.TotalTexts, report.SuccessRate)
	return report, nil
}

// initializer is the optional facade hook that brings the browser session and
// authentication up before the first item.
type initializer interface {
	Init(ctx context.Context) error
}

// outputName derives a filesystem-safe file name from a record identifier,
// keeping alphanumerics, spaces, dashes, and underscores.
func (o *Orchestrator) outputName(id string) string {
	return fmt.Sprintf("%s_%s.wav", o.opts.FilePrefix, SanitizeID(id))
}

// SanitizeID strips path-hostile runes from a record identifier.
func SanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

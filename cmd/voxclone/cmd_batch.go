package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voxclone/internal/manifest"
	"voxclone/internal/store"
)

var (
	batchTexts     string
	batchReference string
	batchOutputDir string
	batchModel     string
	batchVoice     string
	batchMax       int
	batchDelay     time.Duration
	batchNoRecord  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Clone every line of a text file against one reference audio",
	Long: `Loads (id, text) records from a text file (plain lines, tab-separated,
CSV, JSON, or JSONL), clones each against the reference audio, and writes
audio files plus a metadata.tsv manifest under the output directory.

Per-item failures do not stop the batch; the summary reports the success
rate and the run is recorded in the history database.

Example:
  voxclone batch --text-file corpus.txt --ref samples/speaker.wav --out-dir out/`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchTexts, "text-file", "", "Text file with one record per line (required)")
	batchCmd.Flags().StringVar(&batchReference, "ref", "", "Reference audio file (required)")
	batchCmd.Flags().StringVar(&batchOutputDir, "out-dir", "", "Base output directory (required)")
	batchCmd.Flags().StringVar(&batchModel, "model", "default", "Model label in the output tree")
	batchCmd.Flags().StringVar(&batchVoice, "voice", "cloned_voice", "Voice label in the output tree")
	batchCmd.Flags().IntVar(&batchMax, "max", 0, "Override max_batch_size from config")
	batchCmd.Flags().DurationVar(&batchDelay, "delay", 0, "Override batch_delay from config")
	batchCmd.Flags().BoolVar(&batchNoRecord, "no-history", false, "Skip recording the run in the history database")
	_ = batchCmd.MarkFlagRequired("text-file")
	_ = batchCmd.MarkFlagRequired("ref")
	_ = batchCmd.MarkFlagRequired("out-dir")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if batchMax > 0 {
		cfg.Batch.MaxBatchSize = batchMax
	}
	if batchDelay > 0 {
		cfg.Batch.Delay = batchDelay.String()
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	mgr := manifest.NewManager(batchOutputDir)
	layout, err := mgr.CreateCloneLayout("minimax", batchModel, batchVoice)
	if err != nil {
		return err
	}

	p := newProvider(cfg)
	defer func() {
		if err := p.Shutdown(context.Background()); err != nil {
			logger.Warn("browser shutdown failed", zap.Error(err))
		}
	}()

	report, runErr := p.CloneBatch(ctx, batchTexts, batchReference, layout.WavDir)

	// Manifest and history record whatever did happen, even on a failed or
	// interrupted run.
	runID := ""
	if !batchNoRecord {
		hs, err := store.NewHistoryStore(resolvePath(cfg.Store.DatabasePath))
		if err != nil {
			logger.Warn("history store unavailable", zap.Error(err))
		} else {
			defer hs.Close()
			if runID, err = hs.RecordRun(batchTexts, report); err != nil {
				logger.Warn("failed to record run", zap.Error(err))
			}
		}
	}

	for _, res := range report.Results {
		if !res.Success {
			continue
		}
		audioPath, err := filepath.Rel(filepath.Dir(layout.MetadataFile), res.OutputPath)
		if err != nil {
			audioPath = res.OutputPath
		}
		entry := manifest.Entry{
			TextID:         res.ID,
			Text:           res.Text,
			AudioPath:      audioPath,
			Provider:       "minimax",
			ReferenceAudio: filepath.Base(batchReference),
			SampleRate:     cfg.Provider.SampleRate,
			Duration:       res.EstimatedDuration,
			AudioURL:       res.AudioURL,
			CloneID:        runID,
		}
		if err := mgr.AppendClone(layout.MetadataFile, entry); err != nil {
			logger.Warn("failed to append manifest row", zap.String("id", res.ID), zap.Error(err))
		}
	}

	fmt.Printf("Batch complete: %d/%d successful (%.1f%%)\n",
		report.Succeeded(), report.TotalTexts, report.SuccessRate)
	fmt.Printf("  audio:    %s\n", layout.WavDir)
	fmt.Printf("  manifest: %s\n", layout.MetadataFile)
	if runID != "" {
		fmt.Printf("  run id:   %s\n", runID)
	}
	for _, res := range report.Results {
		if !res.Success {
			fmt.Printf("  failed %s: %s\n", res.ID, res.Err)
		}
	}

	return runErr
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	synthText   string
	synthOutput string
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Synthesize a text using the reference audio already on the page",
	Long: `Like clone, but skips the upload: the reference audio uploaded by an
earlier clone in the same browser session is reused. Fails when no
reference is in place.`,
	RunE: runSynth,
}

func init() {
	synthCmd.Flags().StringVar(&synthText, "text", "", "Text to synthesize (required)")
	synthCmd.Flags().StringVar(&synthOutput, "out", "", "Output audio file (required)")
	_ = synthCmd.MarkFlagRequired("text")
	_ = synthCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(synthCmd)
}

func runSynth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	p := newProvider(cfg)
	defer func() {
		if err := p.Shutdown(context.Background()); err != nil {
			logger.Warn("browser shutdown failed", zap.Error(err))
		}
	}()

	res := p.SynthesizeWithMetadata(ctx, synthText, synthOutput)
	if !res.Success {
		return fmt.Errorf("synthesis failed: %s", res.Err)
	}

	fmt.Printf("Synthesized %q -> %s\n", synthText, res.OutputPath)
	return nil
}

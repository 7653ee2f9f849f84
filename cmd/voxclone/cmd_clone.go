package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cloneText      string
	cloneTextFile  string
	cloneReference string
	cloneOutput    string
	cloneJSON      bool
)

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Clone a single text against a reference audio",
	Long: `Signs in, uploads the reference audio, generates the text in the cloned
voice, and downloads the result.

Example:
  voxclone clone --text "Xin chào" --ref samples/speaker.wav --out out/hello.wav`,
	RunE: runClone,
}

func init() {
	cloneCmd.Flags().StringVar(&cloneText, "text", "", "Text to synthesize")
	cloneCmd.Flags().StringVar(&cloneTextFile, "text-file", "", "File whose contents are the text to synthesize")
	cloneCmd.Flags().StringVar(&cloneReference, "ref", "", "Reference audio file (required)")
	cloneCmd.Flags().StringVar(&cloneOutput, "out", "", "Output audio file (required)")
	cloneCmd.Flags().BoolVar(&cloneJSON, "json", false, "Print the full result as JSON")
	cloneCmd.MarkFlagsOneRequired("text", "text-file")
	cloneCmd.MarkFlagsMutuallyExclusive("text", "text-file")
	_ = cloneCmd.MarkFlagRequired("ref")
	_ = cloneCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(cloneCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	text := cloneText
	if cloneTextFile != "" {
		data, err := os.ReadFile(cloneTextFile)
		if err != nil {
			return fmt.Errorf("reading text file: %w", err)
		}
		text = strings.TrimSpace(string(data))
		if text == "" {
			return fmt.Errorf("text file %s is empty", cloneTextFile)
		}
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	p := newProvider(cfg)
	defer func() {
		if err := p.Shutdown(context.Background()); err != nil {
			logger.Warn("browser shutdown failed", zap.Error(err))
		}
	}()

	res := p.CloneWithMetadata(ctx, text, cloneReference, cloneOutput)

	if cloneJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		if !res.Success {
			return fmt.Errorf("clone failed")
		}
		return nil
	}

	if !res.Success {
		return fmt.Errorf("clone failed: %s", res.Err)
	}

	fmt.Printf("Cloned %q\n", text)
	fmt.Printf("  output:   %s\n", res.OutputPath)
	fmt.Printf("  source:   %s\n", res.AudioURL)
	fmt.Printf("  duration: ~%.1fs\n", res.EstimatedDuration)
	return nil
}

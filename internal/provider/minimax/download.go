package minimax

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"voxclone/internal/logging"
	"voxclone/internal/voice"
)

// downloadAudio fetches the generated audio and writes it to outputPath. An
// empty response body is treated as a failure; the site serves zero-byte
// files when the generation was rejected server-side.
func (p *Provider) downloadAudio(ctx context.Context, audioURL, outputPath string) error {
	logging.Download("downloading audio from %s", audioURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download audio: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read audio body: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: downloaded audio is empty", voice.ErrAutomation)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}

	logging.Download("audio saved: %s (%d bytes)", outputPath, len(data))
	return nil
}

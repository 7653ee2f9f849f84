// Package manifest maintains the on-disk layout for generated audio and its
// metadata.tsv sidecar. The tree is provider/model/voice/wav with the
// manifest at the voice level, so corpora from multiple providers and voices
// can coexist under one base directory.
package manifest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"voxclone/internal/logging"
)

// cloneColumns is the manifest schema for clone runs. One row per generated
// utterance.
var cloneColumns = []string{
	"utt_id", "text_id", "text", "audio_path",
	"provider", "reference_audio", "tts_type",
	"sample_rate", "lang", "duration", "gen_date",
	"audio_url", "clone_id",
}

// Entry is one generated utterance to append to the manifest.
type Entry struct {
	TextID         string
	Text           string
	AudioPath      string
	Provider       string
	ReferenceAudio string
	TTSType        string
	SampleRate     int
	Lang           string
	Duration       float64
	AudioURL       string
	CloneID        string
}

// Manager creates the output tree and appends manifest rows.
type Manager struct {
	baseDir string
}

// NewManager creates a manager rooted at baseDir.
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// Layout is the resolved output location for one provider/model/voice.
type Layout struct {
	WavDir       string
	MetadataFile string
}

// CreateCloneLayout builds provider/model/voice/wav under the base directory
// and initializes metadata.tsv with the clone schema if it does not exist.
func (m *Manager) CreateCloneLayout(provider, model, voiceName string) (*Layout, error) {
	voiceDir := filepath.Join(m.baseDir, provider, model, voiceName)
	wavDir := filepath.Join(voiceDir, "wav")

	if err := os.MkdirAll(wavDir, 0755); err != nil {
		return nil, fmt.Errorf("create output tree: %w", err)
	}

	metadataFile := filepath.Join(voiceDir, "metadata.tsv")
	if err := initMetadataFile(metadataFile); err != nil {
		return nil, err
	}

	logging.Store("output layout ready: wav=%s metadata=%s", wavDir, metadataFile)
	return &Layout{WavDir: wavDir, MetadataFile: metadataFile}, nil
}

// initMetadataFile writes the header row unless the file already exists.
func initMetadataFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(cloneColumns); err != nil {
		return fmt.Errorf("write metadata header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// AppendClone appends one utterance row. The utt_id is derived from the
// current row count, zero-padded to three digits.
func (m *Manager) AppendClone(metadataFile string, e Entry) error {
	count, err := rowCount(metadataFile)
	if err != nil {
		return err
	}
	uttID := fmt.Sprintf("%03d", count+1)

	if e.Lang == "" {
		e.Lang = "vi"
	}
	if e.TTSType == "" {
		e.TTSType = "clone"
	}

	f, err := os.OpenFile(metadataFile, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	row := []string{
		uttID,
		e.TextID,
		e.Text,
		e.AudioPath,
		e.Provider,
		e.ReferenceAudio,
		e.TTSType,
		fmt.Sprintf("%d", e.SampleRate),
		e.Lang,
		fmt.Sprintf("%.2f", e.Duration),
		time.Now().Format("2006-01-02 15:04:05"),
		e.AudioURL,
		e.CloneID,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append metadata row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	logging.StoreDebug("appended manifest row %s for %s", uttID, e.AudioPath)
	return nil
}

// NextUttID returns the identifier the next appended row will get.
func (m *Manager) NextUttID(metadataFile string) (string, error) {
	count, err := rowCount(metadataFile)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%03d", count+1), nil
}

// rowCount counts data rows (lines minus the header).
func rowCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if lines == 0 {
		return 0, nil
	}
	return lines - 1, nil
}

package manifest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCreateCloneLayout(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	layout, err := m.CreateCloneLayout("minimax", "default", "cloned_voice")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "minimax", "default", "cloned_voice", "wav"), layout.WavDir)
	assert.DirExists(t, layout.WavDir)
	assert.FileExists(t, layout.MetadataFile)

	rows := readTSV(t, layout.MetadataFile)
	require.Len(t, rows, 1)
	assert.Equal(t, cloneColumns, rows[0])
}

func TestCreateCloneLayout_ExistingManifestIsKept(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	layout, err := m.CreateCloneLayout("minimax", "default", "cloned_voice")
	require.NoError(t, err)
	require.NoError(t, m.AppendClone(layout.MetadataFile, Entry{TextID: "a", Text: "xin chào"}))

	// Re-creating the layout must not truncate the manifest.
	_, err = m.CreateCloneLayout("minimax", "default", "cloned_voice")
	require.NoError(t, err)
	assert.Len(t, readTSV(t, layout.MetadataFile), 2)
}

func TestAppendClone(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)
	layout, err := m.CreateCloneLayout("minimax", "default", "voice1")
	require.NoError(t, err)

	require.NoError(t, m.AppendClone(layout.MetadataFile, Entry{
		TextID:         "utt_01",
		Text:           "câu thử nghiệm\tvới tab",
		AudioPath:      "wav/minimax_utt_01.wav",
		Provider:       "minimax",
		ReferenceAudio: "ref.wav",
		SampleRate:     22050,
		Duration:       1.234,
		AudioURL:       "https://cdn.example.com/a.mp3",
		CloneID:        "run-1",
	}))
	require.NoError(t, m.AppendClone(layout.MetadataFile, Entry{TextID: "utt_02", Text: "hai"}))

	rows := readTSV(t, layout.MetadataFile)
	require.Len(t, rows, 3)

	first := rows[1]
	assert.Equal(t, "001", first[0])
	assert.Equal(t, "utt_01", first[1])
	// Embedded tabs survive via quoting.
	assert.Equal(t, "câu thử nghiệm\tvới tab", first[2])
	assert.Equal(t, "wav/minimax_utt_01.wav", first[3])
	assert.Equal(t, "minimax", first[4])
	assert.Equal(t, "ref.wav", first[5])
	assert.Equal(t, "clone", first[6])
	assert.Equal(t, "22050", first[7])
	assert.Equal(t, "vi", first[8])
	assert.Equal(t, "1.23", first[9])
	assert.NotEmpty(t, first[10])
	assert.Equal(t, "https://cdn.example.com/a.mp3", first[11])
	assert.Equal(t, "run-1", first[12])

	assert.Equal(t, "002", rows[2][0])
}

func TestNextUttID(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)
	layout, err := m.CreateCloneLayout("minimax", "default", "voice1")
	require.NoError(t, err)

	id, err := m.NextUttID(layout.MetadataFile)
	require.NoError(t, err)
	assert.Equal(t, "001", id)

	require.NoError(t, m.AppendClone(layout.MetadataFile, Entry{TextID: "a", Text: "x"}))
	id, err = m.NextUttID(layout.MetadataFile)
	require.NoError(t, err)
	assert.Equal(t, "002", id)
}

func TestAppendClone_DefaultsLangAndType(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)
	layout, err := m.CreateCloneLayout("minimax", "default", "voice1")
	require.NoError(t, err)

	require.NoError(t, m.AppendClone(layout.MetadataFile, Entry{TextID: "a", Text: "x"}))
	row := readTSV(t, layout.MetadataFile)[1]
	assert.Equal(t, "clone", row[6])
	assert.Equal(t, "vi", row[8])
	assert.True(t, strings.HasPrefix(row[10], "20"), "gen_date should be a timestamp")
}

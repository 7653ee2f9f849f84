package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_PlainLines(t *testing.T) {
	path := writeFile(t, "texts.txt", "xin chào\n\nthứ hai\nthứ ba\n")

	records, err := Load(path)
	require.NoError(t, err)

	want := []TextRecord{
		{ID: "1", Text: "xin chào"},
		{ID: "2", Text: "thứ hai"},
		{ID: "3", Text: "thứ ba"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_PlainLines_IdentifiersCountNonEmptyLines(t *testing.T) {
	// Blank lines must not advance the auto-generated identifier sequence.
	path := writeFile(t, "texts.txt", "\n\na\n\n\nb\n")

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "2", records[1].ID)
}

func TestLoad_TabSeparated(t *testing.T) {
	path := writeFile(t, "texts.txt", "utt_001\tcâu thứ nhất\nutt_002\tcâu thứ hai, có\ttab nữa\n")

	records, err := Load(path)
	require.NoError(t, err)

	want := []TextRecord{
		{ID: "utt_001", Text: "câu thứ nhất"},
		// Only the first tab splits; the remainder keeps its tabs.
		{ID: "utt_002", Text: "câu thứ hai, có\ttab nữa"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_TabSeparated_DuplicateIDsPreserved(t *testing.T) {
	path := writeFile(t, "texts.txt", "dup\tfirst\ndup\tsecond\n")

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "dup", records[0].ID)
	assert.Equal(t, "dup", records[1].ID)
}

func TestLoad_CSVByExtension(t *testing.T) {
	path := writeFile(t, "texts.csv", "id,text\n101,a\n102,b\n")

	records, err := Load(path)
	require.NoError(t, err)

	want := []TextRecord{
		{ID: "101", Text: "a"},
		{ID: "102", Text: "b"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_CSVByHeaderSniff(t *testing.T) {
	// No .csv extension, but the first line is an id,text header.
	path := writeFile(t, "texts.dat", "id,text\n7,seven\n")

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, TextRecord{ID: "7", Text: "seven"}, records[0])
}

func TestLoad_CSVMalformedRow(t *testing.T) {
	path := writeFile(t, "texts.csv", "id,text\n1,a\n2,b,extra\n")

	_, err := Load(path)
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.Line)
}

func TestLoad_CSVMissingColumns(t *testing.T) {
	path := writeFile(t, "texts.csv", "name,value\nx,y\n")

	_, err := Load(path)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, "texts.txt", "\n\n  \n")

	records, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "texts.json", `[
		{"id": "a1", "text": "first"},
		{"id": 2, "content": "second"},
		{"transcript": "third"},
		{"id": "skip-me"}
	]`)

	records, err := Load(path)
	require.NoError(t, err)

	want := []TextRecord{
		{ID: "a1", Text: "first"},
		{ID: "2", Text: "second"},
		{ID: "3", Text: "third"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_JSONL_SkipsMalformedLines(t *testing.T) {
	path := writeFile(t, "texts.jsonl", `{"id":"x","text":"ok"}
not json at all
{"id":"y","text":"also ok"}
`)

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "x", records[0].ID)
	assert.Equal(t, "y", records[1].ID)
}

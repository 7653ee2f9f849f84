// Package dataset loads (id, text) records from input files in the formats
// the batch pipeline accepts: plain lines, tab-separated id+text, CSV with an
// id,text header, and JSON/JSONL arrays of objects.
package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"voxclone/internal/logging"
)

// TextRecord is one unit of work for the batch orchestrator. ID is either
// supplied by the source file or auto-generated sequentially; Text is never
// empty for records produced by Load.
type TextRecord struct {
	ID   string
	Text string
}

// FormatError reports a structurally malformed source file, such as a CSV row
// with the wrong column count.
type FormatError struct {
	Path string
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// Load reads records from path, detecting the format in priority order:
// a .csv extension or an id,text header selects CSV; a .json/.jsonl extension
// selects JSON; a literal tab anywhere selects tab-separated; anything else is
// one record per non-empty line with identifiers "1".."N".
//
// Blank lines are skipped. Duplicate identifiers are preserved as given; the
// caller owns uniqueness. A file with zero usable lines yields an empty
// slice, not an error. A missing file fails with an error wrapping
// fs.ErrNotExist.
func Load(path string) ([]TextRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load text file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseCSV(path, data)
	case ".json":
		return parseJSON(path, data)
	case ".jsonl":
		return parseJSONL(path, data)
	}

	if hasCSVHeader(data) {
		return parseCSV(path, data)
	}
	return parseLines(data)
}

// hasCSVHeader reports whether the first line is exactly an id,text header.
func hasCSVHeader(data []byte) bool {
	line, _, _ := strings.Cut(string(data), "\n")
	fields := strings.Split(strings.TrimRight(line, "\r"), ",")
	if len(fields) != 2 {
		return false
	}
	return strings.TrimSpace(strings.ToLower(fields[0])) == "id" &&
		strings.TrimSpace(strings.ToLower(fields[1])) == "text"
}

func parseCSV(path string, data []byte) ([]TextRecord, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1 // column count is validated per row below

	header, err := r.Read()
	if err == io.EOF {
		return []TextRecord{}, nil
	}
	if err != nil {
		return nil, &FormatError{Path: path, Line: 1, Msg: err.Error()}
	}

	idCol, textCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "id":
			idCol = i
		case "text":
			textCol = i
		}
	}
	if idCol < 0 || textCol < 0 {
		return nil, &FormatError{Path: path, Line: 1, Msg: fmt.Sprintf("csv must have id and text columns, found %v", header)}
	}

	var records []TextRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{Path: path, Line: line, Msg: err.Error()}
		}
		if len(row) != len(header) {
			return nil, &FormatError{Path: path, Line: line, Msg: fmt.Sprintf("expected %d columns, got %d", len(header), len(row))}
		}
		id := strings.TrimSpace(row[idCol])
		text := strings.TrimSpace(row[textCol])
		if id == "" || text == "" {
			continue
		}
		records = append(records, TextRecord{ID: id, Text: text})
	}
	if records == nil {
		records = []TextRecord{}
	}
	return records, nil
}

// parseLines handles both tab-separated and plain formats. A line with a tab
// splits on the first tab into (id, text); otherwise the identifier counts
// non-empty lines from 1.
func parseLines(data []byte) ([]TextRecord, error) {
	records := []TextRecord{}
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if id, text, ok := strings.Cut(line, "\t"); ok {
			records = append(records, TextRecord{
				ID:   strings.TrimSpace(id),
				Text: strings.TrimSpace(text),
			})
			continue
		}
		records = append(records, TextRecord{
			ID:   strconv.Itoa(len(records) + 1),
			Text: strings.TrimSpace(line),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan text file: %w", err)
	}
	return records, nil
}

// flexID accepts both string and numeric identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// jsonItem is the accepted object shape for JSON and JSONL sources. Text
// falls back through the keys the original dataset files used.
type jsonItem struct {
	ID         flexID `json:"id"`
	Text       string `json:"text"`
	Content    string `json:"content"`
	Transcript string `json:"transcript"`
}

func (it jsonItem) text() string {
	for _, s := range []string{it.Text, it.Content, it.Transcript} {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func parseJSON(path string, data []byte) ([]TextRecord, error) {
	var items []jsonItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &FormatError{Path: path, Line: 0, Msg: err.Error()}
	}

	records := []TextRecord{}
	for i, it := range items {
		text := it.text()
		if text == "" {
			continue
		}
		id := string(it.ID)
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		records = append(records, TextRecord{ID: id, Text: text})
	}
	return records, nil
}

// parseJSONL skips malformed lines with a warning instead of failing the
// whole load, matching how partially corrupt dataset dumps are handled.
func parseJSONL(path string, data []byte) ([]TextRecord, error) {
	records := []TextRecord{}
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var it jsonItem
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			logging.BatchWarn("skipping malformed JSONL line %d in %s: %v", line, path, err)
			continue
		}
		text := it.text()
		if text == "" {
			continue
		}
		id := string(it.ID)
		if id == "" {
			id = strconv.Itoa(line)
		}
		records = append(records, TextRecord{ID: id, Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan jsonl file: %w", err)
	}
	return records, nil
}

// Package store persists batch run history in SQLite. Every batch run gets a
// row in runs plus one row per item in run_items, so past generations can be
// audited and failed items re-driven.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"voxclone/internal/logging"
	"voxclone/internal/voice"
)

// HistoryStore records batch runs in a local SQLite database.
type HistoryStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Run is one recorded batch invocation.
type Run struct {
	ID             string
	StartedAt      time.Time
	TextFile       string
	ReferenceAudio string
	OutputDir      string
	TotalTexts     int
	Processed      int
	Failed         int
	SuccessRate    float64
	Err            string
}

// RunItem is one recorded utterance within a run.
type RunItem struct {
	RunID      string
	TextID     string
	Text       string
	OutputPath string
	AudioURL   string
	Success    bool
	Err        string
}

// NewHistoryStore initializes the SQLite database at the given path.
func NewHistoryStore(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &HistoryStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the required tables.
func (s *HistoryStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		text_file TEXT NOT NULL,
		reference_audio TEXT,
		output_dir TEXT,
		total_texts INTEGER NOT NULL,
		processed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		success_rate REAL NOT NULL,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS run_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		text_id TEXT NOT NULL,
		text TEXT,
		output_path TEXT,
		audio_url TEXT,
		success INTEGER NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_items_run ON run_items(run_id);
	CREATE INDEX IF NOT EXISTS idx_run_items_success ON run_items(run_id, success);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// RecordRun persists a finished batch report and returns the run id.
func (s *HistoryStore) RecordRun(textFile string, report *voice.BatchReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin run transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, text_file, reference_audio, output_dir,
			total_texts, processed, failed, success_rate, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now(), textFile, report.ReferenceAudio, report.OutputDir,
		report.TotalTexts, report.Processed, report.Failed, report.SuccessRate, report.Err,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_items (run_id, text_id, text, output_path, audio_url, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare item insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range report.Results {
		success := 0
		if res.Success {
			success = 1
		}
		if _, err := stmt.Exec(runID, res.ID, res.Text, res.OutputPath, res.AudioURL, success, res.Err); err != nil {
			return "", fmt.Errorf("insert item %s: %w", res.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}

	logging.Store("recorded run %s: %d items, %.1f%% success", runID, len(report.Results), report.SuccessRate)
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *HistoryStore) ListRuns(limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, text_file, reference_audio, output_dir,
			total_texts, processed, failed, success_rate, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.TextFile, &r.ReferenceAudio, &r.OutputDir,
			&r.TotalTexts, &r.Processed, &r.Failed, &r.SuccessRate, &r.Err); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunItems returns all items of a run in insertion order.
func (s *HistoryStore) RunItems(runID string) ([]RunItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT run_id, text_id, text, output_path, audio_url, success, error
		FROM run_items WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run items: %w", err)
	}
	defer rows.Close()

	var items []RunItem
	for rows.Next() {
		var it RunItem
		var success int
		if err := rows.Scan(&it.RunID, &it.TextID, &it.Text, &it.OutputPath, &it.AudioURL, &success, &it.Err); err != nil {
			return nil, fmt.Errorf("scan run item: %w", err)
		}
		it.Success = success == 1
		items = append(items, it)
	}
	return items, rows.Err()
}

// FailedItems returns the failed items of a run, for building retry inputs.
func (s *HistoryStore) FailedItems(runID string) ([]RunItem, error) {
	items, err := s.RunItems(runID)
	if err != nil {
		return nil, err
	}
	failed := items[:0:0]
	for _, it := range items {
		if !it.Success {
			failed = append(failed, it)
		}
	}
	return failed, nil
}

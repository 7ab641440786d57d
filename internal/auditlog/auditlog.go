package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recurrent-agent/internal/helper"
)

// Record is one successful gateway exchange. Records exist for humans
// debugging a run; nothing in the control loop reads them back.
type Record struct {
	Provider     string `json:"provider"`
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
	Chunk        string `json:"chunk"`
	Response     any    `json:"response"`
	Timestamp    string `json:"timestamp"`
}

// Logger appends records to a per-run directory, one JSON file per exchange
// named <provider>_<timestamp>.json.
type Logger struct {
	dir   string
	runID string
	seq   int
}

// New creates the per-run log directory under baseDir.
func New(baseDir, runID string) (*Logger, error) {
	dir := filepath.Join(baseDir, runID)
	if err := helper.CreateFolder(dir); err != nil {
		return nil, fmt.Errorf("creating audit log dir: %w", err)
	}
	return &Logger{dir: dir, runID: runID}, nil
}

// RunID returns the run this logger belongs to.
func (l *Logger) RunID() string {
	return l.runID
}

// Dir returns the per-run log directory.
func (l *Logger) Dir() string {
	return l.dir
}

// Append writes one record. The sequence number keeps file names unique when
// two exchanges land within the same second.
func (l *Logger) Append(provider, systemPrompt, userPrompt, chunk string, response any) error {
	now := time.Now()
	rec := Record{
		Provider:     provider,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Chunk:        chunk,
		Response:     response,
		Timestamp:    now.Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding audit record: %w", err)
	}

	l.seq++
	name := fmt.Sprintf("%s_%s_%04d.json", provider, now.Format("20060102T150405"), l.seq)
	return os.WriteFile(filepath.Join(l.dir, name), data, 0o644)
}

package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry captures one dispatched agent action for audit and analysis.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
	Text      string         `json:"text,omitempty"`
	Content   map[string]any `json:"content,omitempty"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Writer persists entries to a directory as JSON files, one per dispatch.
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer rooted at dir.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// Write persists an entry to a timestamped JSON file and returns its path.
func (w *Writer) Write(e *Entry) (string, error) {
	if e == nil {
		return "", fmt.Errorf("journal: nil entry")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = w.nowFn()
	}
	w.seq++
	name := fmt.Sprintf("action_%s_%05d.json", e.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

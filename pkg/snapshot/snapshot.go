// Package snapshot writes the incremental progress journal: after every
// fetched page the full accumulated state is serialized to a side file,
// overwriting the previous snapshot. The file is a journal for crash
// visibility, not authoritative state; the fetch never resumes from it and
// never fails because of it.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Zxoir/twitter-month-archiver/pkg/logger"
	"github.com/Zxoir/twitter-month-archiver/pkg/twitter"
)

// Snapshot is a point-in-time serialization of fetch progress plus
// provenance. Includes holds the side tables of the latest page only, not a
// merge across pages; resolving media or author references for earlier pages
// against a snapshot will come up short. Kept that way on purpose to match
// the established file format.
type Snapshot struct {
	UserID     string                     `json:"user_id"`
	StartTime  string                     `json:"start_time"`
	EndTime    string                     `json:"end_time"`
	Page       int                        `json:"page"`
	CountSoFar int                        `json:"count_so_far"`
	Meta       twitter.Meta               `json:"meta"`
	Includes   map[string]json.RawMessage `json:"includes"`
	FetchedAt  string                     `json:"fetched_at"`
	PostsSoFar []twitter.Post             `json:"posts_so_far"`
}

// Writer persists snapshots to a fixed path, whole-file overwrite each time.
// Access is strictly sequential within a fetch, so no locking is needed.
type Writer struct {
	path   string
	logger logger.Logger
}

// NewWriter creates a snapshot writer for the given path.
func NewWriter(path string) *Writer {
	return &Writer{
		path:   path,
		logger: logger.GetLogger(),
	}
}

// Path returns the snapshot file path.
func (w *Writer) Path() string {
	return w.path
}

// Write replaces the snapshot file with the given state. The write goes
// through a temp file and rename so an interrupted process leaves the
// previous snapshot intact.
func (w *Writer) Write(s *Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tempPath := w.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	if err := os.Rename(tempPath, w.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}

	w.logger.DebugWithFields("snapshot saved", map[string]interface{}{
		"path":  w.path,
		"page":  s.Page,
		"count": s.CountSoFar,
	})

	return nil
}

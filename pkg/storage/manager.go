// Package storage manages the output directory and the JSON files an export
// produces: the final per-user document and the per-user partial journal.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manager handles file placement inside the output directory.
type Manager struct {
	outputDir string
}

// NewManager creates a storage manager, creating the output directory if it
// does not exist.
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir}, nil
}

// OutputDir returns the output directory path.
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// ExportPath returns the final export file path for a user and month.
func (m *Manager) ExportPath(username, month string) string {
	return filepath.Join(m.outputDir, fmt.Sprintf("posts_%s_%s.json", username, month))
}

// PartialPath returns the incremental snapshot file path for a user and
// month. The file is left on disk after a successful export.
func (m *Manager) PartialPath(username, month string) string {
	return filepath.Join(m.outputDir, fmt.Sprintf("posts_%s_%s.partial.json", username, month))
}

// WriteJSON serializes v to path with indentation, going through a temp file
// and rename so readers never observe a half-written document.
func (m *Manager) WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}

	return nil
}

// Package checkpoint implements the checkpoint manager (spec.md §4.5):
// atomic load/save of per-(category, date) crawl progress so an
// interrupted run resumes without duplicating work.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"newscrawl/internal/domain/entity"
)

// Manager persists CheckpointState documents under a directory, one file
// per (category, date).
type Manager struct {
	dir string
}

// New builds a Manager rooted at dir. The directory is created on first
// Save if it doesn't exist.
func New(dir string) *Manager {
	return &Manager{dir: dir}
}

func (m *Manager) path(category entity.Category, date string) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s_%s.json", category, date))
}

// Load returns the checkpoint for (category, date), or a fresh empty one
// if the document is missing, unreadable, or a version mismatch. It never
// returns an error — corruption is logged and treated as absent (spec.md
// §4.5).
func (m *Manager) Load(category entity.Category, date string) *entity.CheckpointState {
	path := m.path(category, date)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("checkpoint: unreadable, treating as absent", "path", path, "error", err)
		}
		return entity.NewCheckpointState(category, date)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("checkpoint: corrupt document, treating as absent", "path", path, "error", err)
		return entity.NewCheckpointState(category, date)
	}
	if doc.Version != currentVersion {
		slog.Warn("checkpoint: unknown schema version, treating as absent",
			"path", path, "version", doc.Version, "expected", currentVersion)
		return entity.NewCheckpointState(category, date)
	}

	return fromDocument(doc)
}

// Save writes state to a sibling temp file, fsyncs it, then renames over
// the destination. The rename is the linearization point readers never
// observe a partial write across (spec.md §4.5).
func (m *Manager) Save(state *entity.CheckpointState) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create dir: %w", err)
	}

	data, err := json.MarshalIndent(toDocument(state), "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}

	finalPath := m.path(state.Category, state.Date)
	tmp, err := os.CreateTemp(m.dir, ".tmp-checkpoint-*")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: rename into place: %w", err)
	}
	return nil
}

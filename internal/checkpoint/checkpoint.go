// Package checkpoint persists run state to disk so a run that ended with
// failed items can be rerun without repeating its decisions.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"vodgrab/internal/entity"
)

// Store reads and writes the run checkpoint file. Saves are best-effort:
// a failed save is logged and the run continues.
type Store struct {
	log  *slog.Logger
	path string
}

// New creates a checkpoint store backed by the file at path.
func New(log *slog.Logger, path string) *Store {
	return &Store{
		log:  log.With(slog.String("package", "checkpoint")),
		path: path,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the checkpoint from disk. A missing or unreadable file yields a
// fresh checkpoint rather than an error; stale state must never block a run.
// A checkpoint whose run already completed is deleted and replaced with a
// fresh one.
func (s *Store) Load() *entity.Checkpoint {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("failed to read checkpoint, starting fresh", "error", err)
		}

		return entity.NewCheckpoint()
	}

	cp := entity.NewCheckpoint()
	if err := json.Unmarshal(data, cp); err != nil {
		s.log.Warn("corrupt checkpoint, starting fresh", "error", err)

		return entity.NewCheckpoint()
	}

	if cp.RunCompleted {
		s.log.Info("previous run completed, starting fresh")
		s.Delete()

		return entity.NewCheckpoint()
	}

	if cp.Items == nil {
		cp.Items = make(map[string]entity.ItemStatus)
	}

	s.log.Info("resuming from checkpoint", "checkpoint", cp)

	return cp
}

// Save writes the checkpoint atomically via a temp file and rename, so a
// crash mid-write never leaves a truncated checkpoint behind.
func (s *Store) Save(cp *entity.Checkpoint) {
	if err := s.save(cp); err != nil {
		s.log.Warn("failed to save checkpoint", "error", err)
	}
}

func (s *Store) save(cp *entity.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Delete removes the checkpoint file. Missing files are fine.
func (s *Store) Delete() {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("failed to delete checkpoint", "error", err)
	}
}

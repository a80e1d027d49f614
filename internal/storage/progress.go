package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ProgressFile keeps a small JSON document (a scan checkpoint, an
// aggregation watermark) on local disk. Writes replace the file atomically.
// An empty path disables it: Load reports nothing stored and Save is a no-op.
type ProgressFile struct {
	Path string
}

// Load decodes the stored document into v and reports whether one existed.
func (p ProgressFile) Load(v interface{}) (bool, error) {
	if p.Path == "" {
		return false, nil
	}
	data, err := os.ReadFile(p.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("read %s: %w", p.Path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", p.Path, err)
	}
	return true, nil
}

// Save writes v next to the target and renames it into place.
func (p ProgressFile) Save(v interface{}) error {
	if p.Path == "" {
		return nil
	}
	if dir := filepath.Dir(p.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", p.Path, err)
	}
	return nil
}

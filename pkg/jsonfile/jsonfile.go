// Package jsonfile reads and writes indented JSON documents on disk.
// Writes go through a temporary file in the destination directory and are
// renamed into place, so a failed write never leaves a partial document.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotExist indicates the requested document is not present.
var ErrNotExist = errors.New("document does not exist")

// Write marshals v as two-space indented JSON and atomically replaces path.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	return nil
}

// Read decodes the JSON document at path into a T.
// A missing file is reported as ErrNotExist.
func Read[T any](path string) (T, error) {
	var result T

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return result, fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("decode %s: %w", path, err)
	}

	return result, nil
}

// Exists reports whether a regular file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

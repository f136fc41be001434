// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download saves received archives to disk.
package download

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default archive names.
const (
	DeckArchive            = "ojamed_deck.zip"
	CompletePackageArchive = "ojamed_complete_package.zip"
)

// maxCollisions bounds the " (n)" suffix search.
const maxCollisions = 1000

// DownloadError is a failed save. It is non-fatal: the conversion itself
// succeeded and the payload can be requested again.
type DownloadError struct {
	Name string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("saving %s: %v", e.Name, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Dispatcher writes payloads into Dir.
type Dispatcher struct {
	Dir string
}

// Trigger saves payload under suggestedName and returns the final path. The
// payload is written to a temporary file that is renamed into place; the
// temporary file never outlives the call. An existing file is not
// overwritten: "deck.zip" becomes "deck (1).zip", "deck (2).zip", and so on.
func (d Dispatcher) Trigger(payload []byte, suggestedName string) (string, error) {
	name := filepath.Base(strings.TrimSpace(suggestedName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", &DownloadError{Name: suggestedName, Err: errors.New("empty file name")}
	}

	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &DownloadError{Name: name, Err: fmt.Errorf("creating directory %s: %w", dir, err)}
	}

	tmpFile, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return "", &DownloadError{Name: name, Err: fmt.Errorf("creating temp file: %w", err)}
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(payload)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return "", &DownloadError{Name: name, Err: fmt.Errorf("writing download: %w", writeErr)}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", &DownloadError{Name: name, Err: fmt.Errorf("closing temp file: %w", closeErr)}
	}

	dest, err := available(dir, name)
	if err != nil {
		os.Remove(tmpPath)
		return "", &DownloadError{Name: name, Err: err}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", &DownloadError{Name: name, Err: fmt.Errorf("renaming temp file: %w", err)}
	}
	return dest, nil
}

// available returns the first path in dir for name that does not exist yet.
func available(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(dir, name)
	for i := 1; i <= maxCollisions; i++ {
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
	}
	return "", fmt.Errorf("too many existing copies of %s in %s", name, dir)
}

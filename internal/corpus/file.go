// Package corpus reads and writes post collections stored as JSON arrays.
package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/postpilot/internal/models"
)

// ErrNotArray is returned when a corpus file holds something other than a JSON array
var ErrNotArray = errors.New("corpus must be a JSON array of objects")

// Load reads a corpus file. Every element must be a JSON object; keys other
// than the known ones are preserved untouched.
func Load(path string) ([]models.Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}
	posts, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode corpus %s: %w", path, err)
	}
	return posts, nil
}

// Decode parses a JSON array of post objects. Numbers are kept as
// json.Number so unknown fields are written back exactly as they were read.
func Decode(data []byte) ([]models.Post, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var posts []models.Post
	if err := dec.Decode(&posts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after array", ErrNotArray)
	}
	for i, p := range posts {
		if p == nil {
			return nil, fmt.Errorf("%w: element %d is null", ErrNotArray, i)
		}
	}
	return posts, nil
}

// Save writes posts to path, creating parent directories as needed. The file
// is written to a temporary sibling first and renamed into place.
func Save(path string, posts []models.Post) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create corpus directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, posts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write corpus %s: %w", path, err)
	}
	return nil
}

// Write encodes posts as a JSON array indented by four spaces. Non-ASCII text
// is written as-is rather than escaped.
func Write(w io.Writer, posts []models.Post) error {
	if posts == nil {
		posts = []models.Post{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(posts); err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	return nil
}

package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/postpilot/internal/corpus"
	"github.com/postpilot/internal/models"
	"github.com/postpilot/pkg/logger"
)

// IngestResult summarises one ingest into the raw corpus
type IngestResult struct {
	Fetched int
	Added   int
	Total   int
	Errors  []error
}

// Ingest fetches every source and writes the raw corpus at path. With
// appendMode the existing corpus is kept and only posts with unseen links are
// added; otherwise the file is replaced. It fails only when every source fails.
func Ingest(ctx context.Context, m *Manager, path string, appendMode bool, log *logger.Logger) (*IngestResult, error) {
	if len(m.sources) == 0 {
		return nil, fmt.Errorf("no sources registered")
	}

	fetched, errs := m.FetchAll(ctx)
	for _, e := range errs {
		log.Warn().Err(e).Msg("Source fetch failed")
	}
	if len(errs) == len(m.sources) {
		return nil, fmt.Errorf("all %d sources failed: %w", len(errs), errors.Join(errs...))
	}

	var existing []models.Post
	if appendMode {
		loaded, err := corpus.Load(path)
		switch {
		case err == nil:
			existing = loaded
		case errors.Is(err, os.ErrNotExist):
			log.Info().Str("path", path).Msg("Raw corpus not found, starting a new one")
		default:
			return nil, err
		}
	}

	merged := Merge(existing, fetched)
	if err := corpus.Save(path, merged); err != nil {
		return nil, err
	}

	result := &IngestResult{
		Fetched: len(fetched),
		Added:   len(merged) - len(existing),
		Total:   len(merged),
		Errors:  errs,
	}

	log.Info().
		Int("fetched", result.Fetched).
		Int("added", result.Added).
		Int("total", result.Total).
		Str("path", path).
		Msg("Raw corpus updated")

	return result, nil
}

package storage

import (
	"context"

	"github.com/postpilot/internal/models"
)

// Repository persists enrichment history and generated posts
type Repository interface {
	// Enrichment run operations
	CreateRun(ctx context.Context, run *models.EnrichmentRun) error
	UpdateRun(ctx context.Context, run *models.EnrichmentRun) error
	GetRunByID(ctx context.Context, id uint) (*models.EnrichmentRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*models.EnrichmentRun, error)

	// Generated post operations
	CreateGeneratedPost(ctx context.Context, post *models.GeneratedPost) error
	ListGeneratedPosts(ctx context.Context, filter GeneratedPostFilter) ([]*models.GeneratedPost, error)

	// Maintenance
	Close() error
	Migrate() error
}

// RunFilter defines filtering options for enrichment runs
type RunFilter struct {
	Status *models.RunStatus
	Limit  int
	Offset int
}

// GeneratedPostFilter defines filtering options for generated posts
type GeneratedPostFilter struct {
	Topic    *string
	Language *models.Language
	Length   *models.Length
	Limit    int
	Offset   int
}

// DefaultRunFilter returns a filter with sensible defaults
func DefaultRunFilter() RunFilter {
	return RunFilter{Limit: 20}
}

// DefaultGeneratedPostFilter returns a filter with sensible defaults
func DefaultGeneratedPostFilter() GeneratedPostFilter {
	return GeneratedPostFilter{Limit: 20}
}

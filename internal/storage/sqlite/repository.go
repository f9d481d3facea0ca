package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/postpilot/internal/models"
	"github.com/postpilot/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

var _ storage.Repository = (*Repository)(nil)

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" && dsn != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.EnrichmentRun{},
		&models.GeneratedPost{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Enrichment run operations

func (r *Repository) CreateRun(ctx context.Context, run *models.EnrichmentRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *Repository) UpdateRun(ctx context.Context, run *models.EnrichmentRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *Repository) GetRunByID(ctx context.Context, id uint) (*models.EnrichmentRun, error) {
	var run models.EnrichmentRun
	if err := r.db.WithContext(ctx).First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Repository) ListRuns(ctx context.Context, filter storage.RunFilter) ([]*models.EnrichmentRun, error) {
	var runs []*models.EnrichmentRun
	query := r.db.WithContext(ctx).Model(&models.EnrichmentRun{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	query = query.Order("started_at DESC").Order("id DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Generated post operations

func (r *Repository) CreateGeneratedPost(ctx context.Context, post *models.GeneratedPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *Repository) ListGeneratedPosts(ctx context.Context, filter storage.GeneratedPostFilter) ([]*models.GeneratedPost, error) {
	var posts []*models.GeneratedPost
	query := r.db.WithContext(ctx).Model(&models.GeneratedPost{})

	if filter.Topic != nil {
		query = query.Where("topic = ?", *filter.Topic)
	}
	if filter.Language != nil {
		query = query.Where("language = ?", *filter.Language)
	}
	if filter.Length != nil {
		query = query.Where("length = ?", *filter.Length)
	}

	query = query.Order("created_at DESC").Order("id DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

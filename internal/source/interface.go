package source

import (
	"context"
	"sync"

	"github.com/postpilot/internal/models"
)

// Keys set on posts built from external sources, alongside "text"
const (
	FieldTitle     = "title"
	FieldLink      = "link"
	FieldPublished = "published"
	FieldSource    = "source"
)

// PostSource produces raw corpus posts
type PostSource interface {
	// Name returns the unique name of this source
	Name() string

	// Fetch retrieves posts from the source
	Fetch(ctx context.Context) ([]models.Post, error)
}

// Manager manages multiple post sources
type Manager struct {
	sources []PostSource
}

// NewManager creates a new source manager
func NewManager() *Manager {
	return &Manager{
		sources: make([]PostSource, 0),
	}
}

// Register adds a source to the manager
func (m *Manager) Register(source PostSource) {
	m.sources = append(m.sources, source)
}

// Sources returns all registered sources
func (m *Manager) Sources() []PostSource {
	return m.sources
}

// FetchAll fetches posts from all sources concurrently. Results keep
// registration order and are deduplicated by link; a failing source does not
// affect the others.
func (m *Manager) FetchAll(ctx context.Context) ([]models.Post, []error) {
	type result struct {
		posts []models.Post
		err   error
	}

	results := make([]result, len(m.sources))
	var wg sync.WaitGroup

	for i, s := range m.sources {
		i, s := i, s
		wg.Add(1)
		go func() {
			defer wg.Done()
			posts, err := s.Fetch(ctx)
			results[i] = result{posts: posts, err: err}
		}()
	}
	wg.Wait()

	var allPosts []models.Post
	var errs []error

	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		allPosts = append(allPosts, r.posts...)
	}

	return Merge(nil, allPosts), errs
}

// Merge appends incoming posts to existing ones, skipping any whose link is
// already present. Posts without a link are always kept.
func Merge(existing, incoming []models.Post) []models.Post {
	seen := make(map[string]bool, len(existing)+len(incoming))
	merged := make([]models.Post, 0, len(existing)+len(incoming))

	for _, batch := range [][]models.Post{existing, incoming} {
		for _, post := range batch {
			if link := Link(post); link != "" {
				if seen[link] {
					continue
				}
				seen[link] = true
			}
			merged = append(merged, post)
		}
	}
	return merged
}

// Link returns the post's source link, or "" if it has none
func Link(post models.Post) string {
	link, _ := post[FieldLink].(string)
	return link
}

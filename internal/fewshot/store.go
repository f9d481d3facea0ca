// Package fewshot selects example posts from the enriched corpus to steer generation.
package fewshot

import (
	"fmt"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/postpilot/internal/corpus"
	"github.com/postpilot/internal/models"
)

// Store is an in-memory, read-only view of the enriched corpus
type Store struct {
	posts     []models.Post
	lengths   []models.Length
	tagCounts map[string]int
}

// Load reads the enriched corpus from path
func Load(path string) (*Store, error) {
	posts, err := corpus.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load examples: %w", err)
	}
	return New(posts), nil
}

// New builds a store from enriched posts. Posts without a line count are
// never selected as examples.
func New(posts []models.Post) *Store {
	s := &Store{
		posts:     posts,
		lengths:   make([]models.Length, len(posts)),
		tagCounts: make(map[string]int),
	}
	for i, post := range posts {
		if n, ok := post.LineCount(); ok {
			s.lengths[i] = models.CategorizeLength(n)
		}
		for _, tag := range post.Tags() {
			s.tagCounts[tag]++
		}
	}
	return s
}

// Len returns the number of posts in the store
func (s *Store) Len() int {
	return len(s.posts)
}

// Tags returns the distinct tags across the corpus in English collation order
func (s *Store) Tags() []string {
	tags := make([]string, 0, len(s.tagCounts))
	for tag := range s.tagCounts {
		tags = append(tags, tag)
	}
	collate.New(language.English, collate.IgnoreCase).SortStrings(tags)
	return tags
}

// TagCount returns how many posts carry the tag
func (s *Store) TagCount(tag string) int {
	return s.tagCounts[tag]
}

// Filter returns posts carrying tag whose language and length category match,
// in corpus order.
func (s *Store) Filter(length models.Length, lang models.Language, tag string) []models.Post {
	var matches []models.Post
	for i, post := range s.posts {
		if s.lengths[i] != length || post.Language() != lang || !post.HasTag(tag) {
			continue
		}
		matches = append(matches, post)
	}
	return matches
}

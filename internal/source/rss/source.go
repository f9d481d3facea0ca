package rss

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/postpilot/internal/config"
	"github.com/postpilot/internal/models"
	"github.com/postpilot/internal/source"
	"github.com/postpilot/pkg/logger"
	"github.com/postpilot/pkg/ratelimit"
)

// Source implements PostSource for RSS and Atom feeds
type Source struct {
	name    string
	url     string
	parser  *gofeed.Parser
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// New creates a new RSS source for a single feed. limiter may be nil.
func New(feed config.FeedConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Source {
	return &Source{
		name:    feed.Name,
		url:     feed.URL,
		parser:  gofeed.NewParser(),
		limiter: limiter,
		log:     log.WithSource("rss", feed.Name),
	}
}

// NewMultiple creates one source per configured feed
func NewMultiple(feeds []config.FeedConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) []*Source {
	sources := make([]*Source, 0, len(feeds))
	for _, feed := range feeds {
		sources = append(sources, New(feed, limiter, log))
	}
	return sources
}

// Name returns the source name
func (s *Source) Name() string {
	return s.name
}

// Fetch retrieves feed items as raw corpus posts. Items with no body text are dropped.
func (s *Source) Fetch(ctx context.Context) ([]models.Post, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, ratelimit.LimiterFeeds); err != nil {
			return nil, err
		}
	}

	s.log.Debug().Str("url", s.url).Msg("Fetching feed")

	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", s.name, err)
	}

	posts := make([]models.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		body := item.Content
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}
		text := htmlToText(body)
		if text == "" {
			continue
		}

		post := models.Post{
			models.FieldText:   text,
			source.FieldTitle:  htmlToText(item.Title),
			source.FieldLink:   item.Link,
			source.FieldSource: s.name,
		}
		if item.PublishedParsed != nil {
			post[source.FieldPublished] = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		posts = append(posts, post)
	}

	s.log.Info().
		Int("count", len(posts)).
		Str("feed", s.name).
		Msg("Fetched feed posts")

	return posts, nil
}

var lineBreaks = strings.NewReplacer(
	"<br>", "\n",
	"<br/>", "\n",
	"<br />", "\n",
	"</p>", "\n",
	"</li>", "\n",
)

// htmlToText strips markup while keeping line structure, since line counts
// drive length categories later on.
func htmlToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(lineBreaks.Replace(html))); err == nil {
		text = doc.Text()
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

var _ source.PostSource = (*Source)(nil)

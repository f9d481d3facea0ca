package enrich

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/postpilot/internal/ai"
	"github.com/postpilot/internal/corpus"
	"github.com/postpilot/internal/models"
	"github.com/postpilot/pkg/logger"
)

// ErrMissingText is the skip reason for corpus entries without a string "text" field
var ErrMissingText = errors.New("post has no text")

// RunStore records enrichment runs. storage.Repository satisfies it.
type RunStore interface {
	CreateRun(ctx context.Context, run *models.EnrichmentRun) error
	UpdateRun(ctx context.Context, run *models.EnrichmentRun) error
}

// Options configures a Pipeline
type Options struct {
	Workers int      // concurrent extraction calls, at least 1
	Model   string   // recorded on runs
	Runs    RunStore // optional
}

// Skip describes a raw post that was left out of the enriched batch
type Skip struct {
	Index int
	Err   error
}

// Result is the outcome of enriching one batch
type Result struct {
	Posts      []models.Post
	Skipped    []Skip
	Mapping    map[string]string
	TagsBefore []string
	TagsAfter  []string
}

// Pipeline extracts metadata for every post, then unifies tags across the
// whole batch.
type Pipeline struct {
	extractor *Extractor
	unifier   *Unifier
	opts      Options
	log       *logger.Logger
}

// NewPipeline creates an enrichment pipeline around a completer
func NewPipeline(llm ai.Completer, opts Options, log *logger.Logger) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		extractor: NewExtractor(llm, log),
		unifier:   NewUnifier(llm, log),
		opts:      opts,
		log:       log.WithComponent("pipeline"),
	}
}

// Enrich runs extraction for every raw post and then one unification call.
//
// A failed extraction skips only that post. A failed unification fails the
// whole batch. Output order follows input order with skipped posts removed.
// Raw posts are never modified.
func (p *Pipeline) Enrich(ctx context.Context, raw []models.Post) (*Result, error) {
	enriched := make([]models.Post, len(raw))
	failures := make([]error, len(raw))

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)

	for i, post := range raw {
		i, post := i, post
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = err
				return nil
			}
			text, ok := post.Text()
			if !ok {
				failures[i] = ErrMissingText
				return nil
			}
			md, err := p.extractor.Extract(ctx, text)
			if err != nil {
				failures[i] = err
				return nil
			}
			enriched[i] = post.WithMetadata(md)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enrichment cancelled: %w", err)
	}

	result := &Result{Posts: make([]models.Post, 0, len(raw))}
	for i := range raw {
		if failures[i] != nil {
			p.log.WithPost(i).Warn().Err(failures[i]).Msg("Skipping post")
			result.Skipped = append(result.Skipped, Skip{Index: i, Err: failures[i]})
			continue
		}
		result.Posts = append(result.Posts, enriched[i])
	}

	result.TagsBefore = collectTags(result.Posts)

	mapping, err := p.unifier.Unify(ctx, result.TagsBefore)
	if err != nil {
		return nil, fmt.Errorf("tag unification failed: %w", err)
	}
	result.Mapping = mapping

	for _, post := range result.Posts {
		post.SetTags(ApplyMapping(post.Tags(), mapping))
	}
	result.TagsAfter = collectTags(result.Posts)

	p.log.Info().
		Int("raw", len(raw)).
		Int("enriched", len(result.Posts)).
		Int("skipped", len(result.Skipped)).
		Int("tags_before", len(result.TagsBefore)).
		Int("tags_after", len(result.TagsAfter)).
		Msg("Enrichment complete")

	return result, nil
}

// Run loads the raw corpus, enriches it and writes the processed corpus.
// Nothing is written unless enrichment succeeds. An empty outputPath skips
// the write. When a RunStore is configured the run is recorded.
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	run := &models.EnrichmentRun{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Model:      p.opts.Model,
		Workers:    p.opts.Workers,
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now(),
	}
	p.startRun(ctx, run)

	result, err := p.run(ctx, run, inputPath, outputPath)
	p.finishRun(ctx, run, result, err)
	return result, err
}

func (p *Pipeline) run(ctx context.Context, run *models.EnrichmentRun, inputPath, outputPath string) (*Result, error) {
	raw, err := corpus.Load(inputPath)
	if err != nil {
		return nil, err
	}
	run.RawCount = len(raw)

	p.log.Info().
		Str("input", inputPath).
		Int("posts", len(raw)).
		Int("workers", p.opts.Workers).
		Msg("Starting enrichment")

	result, err := p.Enrich(ctx, raw)
	if err != nil {
		return nil, err
	}

	if outputPath != "" {
		if err := corpus.Save(outputPath, result.Posts); err != nil {
			return nil, err
		}
		p.log.Info().Str("output", outputPath).Msg("Processed corpus written")
	}
	return result, nil
}

func (p *Pipeline) startRun(ctx context.Context, run *models.EnrichmentRun) {
	if p.opts.Runs == nil {
		return
	}
	if err := p.opts.Runs.CreateRun(ctx, run); err != nil {
		p.log.Warn().Err(err).Msg("Failed to record enrichment run")
	}
}

func (p *Pipeline) finishRun(ctx context.Context, run *models.EnrichmentRun, result *Result, runErr error) {
	if p.opts.Runs == nil || run.ID == 0 {
		return
	}

	now := time.Now()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = runErr.Error()
	} else {
		run.Status = models.RunStatusSucceeded
		run.EnrichedCount = len(result.Posts)
		run.SkippedCount = len(result.Skipped)
		run.TagsBefore = len(result.TagsBefore)
		run.TagsAfter = len(result.TagsAfter)
		run.CanonicalTags = result.TagsAfter
	}

	// The run context may already be cancelled; the record should still land.
	if err := p.opts.Runs.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		p.log.WithRunID(run.ID).Warn().Err(err).Msg("Failed to update enrichment run")
	}
}

// collectTags returns the sorted set of tags across posts
func collectTags(posts []models.Post) []string {
	seen := make(map[string]bool)
	for _, post := range posts {
		for _, tag := range post.Tags() {
			seen[tag] = true
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Package generator writes new posts in the style of the enriched corpus.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/postpilot/internal/ai"
	"github.com/postpilot/internal/fewshot"
	"github.com/postpilot/internal/models"
	"github.com/postpilot/pkg/logger"
)

// MaxExamples is the number of corpus posts included in a generation prompt
const MaxExamples = 2

// ErrEmptyTopic is returned when no topic is selected
var ErrEmptyTopic = errors.New("topic is required")

// PostStore records generated posts. storage.Repository satisfies it.
type PostStore interface {
	CreateGeneratedPost(ctx context.Context, post *models.GeneratedPost) error
}

// Generation is the result of one Generate call
type Generation struct {
	Content      string
	Prompt       string
	ExampleCount int
}

// Generator renders few-shot prompts and asks the model for a post
type Generator struct {
	llm      ai.Completer
	examples *fewshot.Store
	posts    PostStore
	model    string
	log      *logger.Logger
}

// New creates a generator. posts may be nil.
func New(llm ai.Completer, examples *fewshot.Store, posts PostStore, model string, log *logger.Logger) *Generator {
	return &Generator{
		llm:      llm,
		examples: examples,
		posts:    posts,
		model:    model,
		log:      log.WithComponent("generator"),
	}
}

// Generate writes a post on topic with the requested length and language
func (g *Generator) Generate(ctx context.Context, length models.Length, lang models.Language, topic string) (*Generation, error) {
	length, err := models.ParseLength(string(length))
	if err != nil {
		return nil, err
	}
	lang, err = models.ParseLanguage(string(lang))
	if err != nil {
		return nil, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	prompt, exampleCount := g.BuildPrompt(length, lang, topic)

	reply, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate post: %w", err)
	}

	gen := &Generation{
		Content:      strings.TrimSpace(reply),
		Prompt:       prompt,
		ExampleCount: exampleCount,
	}

	g.log.Info().
		Str("topic", topic).
		Str("length", string(length)).
		Str("language", string(lang)).
		Int("examples", exampleCount).
		Msg("Post generated")

	g.record(ctx, length, lang, topic, gen)
	return gen, nil
}

// BuildPrompt renders the generation prompt and returns it with the number of
// examples included.
func (g *Generator) BuildPrompt(length models.Length, lang models.Language, topic string) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, ai.PostGenerationPrompt, topic, length.LineRange(), lang)

	var examples []models.Post
	if g.examples != nil {
		examples = g.examples.Filter(length, lang, topic)
	}
	if len(examples) > MaxExamples {
		examples = examples[:MaxExamples]
	}

	n := 0
	for _, post := range examples {
		text, ok := post.Text()
		if !ok {
			continue
		}
		if n == 0 {
			b.WriteString(ai.FewShotIntro)
		}
		n++
		fmt.Fprintf(&b, ai.FewShotExample, n, text)
	}
	return b.String(), n
}

func (g *Generator) record(ctx context.Context, length models.Length, lang models.Language, topic string, gen *Generation) {
	if g.posts == nil {
		return
	}
	post := &models.GeneratedPost{
		Length:       length,
		Language:     lang,
		Topic:        topic,
		ExampleCount: gen.ExampleCount,
		Prompt:       gen.Prompt,
		Content:      gen.Content,
		Model:        g.model,
	}
	if err := g.posts.CreateGeneratedPost(ctx, post); err != nil {
		g.log.Warn().Err(err).Msg("Failed to record generated post")
	}
}

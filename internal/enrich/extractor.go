package enrich

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/postpilot/internal/ai"
	"github.com/postpilot/internal/models"
	"github.com/postpilot/pkg/logger"
)

// MaxExtractedTags is the number of tags kept per post at extraction time
const MaxExtractedTags = 2

// ErrInvalidMetadata means the reply parsed as JSON but did not describe a post.
var ErrInvalidMetadata = fmt.Errorf("%w: invalid metadata", ai.ErrParse)

// Extractor asks the model for the line count, language and tags of a post
type Extractor struct {
	llm ai.Completer
	log *logger.Logger
}

// NewExtractor creates a metadata extractor
func NewExtractor(llm ai.Completer, log *logger.Logger) *Extractor {
	return &Extractor{
		llm: llm,
		log: log.WithComponent("extractor"),
	}
}

// Extract infers metadata for one post.
//
// The reply is validated and coerced rather than trusted: line_count may be a
// number or a numeric string, language is matched case-insensitively, tags are
// trimmed, deduplicated and capped at MaxExtractedTags. Missing or unusable
// fields fail with ErrInvalidMetadata; unknown extra keys are dropped.
func (e *Extractor) Extract(ctx context.Context, postText string) (models.Metadata, error) {
	prompt := ai.RenderMetadataPrompt(CleanText(postText))

	reply, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return models.Metadata{}, err
	}

	var raw map[string]any
	if err := ai.DecodeJSON(reply, &raw); err != nil {
		e.log.Debug().Err(err).Str("response", reply).Msg("Failed to parse metadata response")
		return models.Metadata{}, err
	}

	md, err := decodeMetadata(raw)
	if err != nil {
		e.log.Debug().Err(err).Str("response", reply).Msg("Rejected metadata response")
		return models.Metadata{}, err
	}
	return md, nil
}

func decodeMetadata(raw map[string]any) (models.Metadata, error) {
	var md models.Metadata

	lineCount, err := decodeLineCount(raw[models.FieldLineCount])
	if err != nil {
		return md, err
	}
	md.LineCount = lineCount

	langValue, ok := raw[models.FieldLanguage].(string)
	if !ok {
		return md, fmt.Errorf("%w: language must be a string, got %T", ErrInvalidMetadata, raw[models.FieldLanguage])
	}
	lang, err := models.ParseLanguage(langValue)
	if err != nil {
		return md, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	md.Language = lang

	tags, err := decodeTags(raw)
	if err != nil {
		return md, err
	}
	md.Tags = tags

	return md, nil
}

func decodeLineCount(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: line_count must be a non-negative integer, got %v", ErrInvalidMetadata, n)
		}
		return int(n), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || parsed < 0 {
			return 0, fmt.Errorf("%w: line_count must be a non-negative integer, got %q", ErrInvalidMetadata, n)
		}
		return parsed, nil
	case nil:
		return 0, fmt.Errorf("%w: line_count missing", ErrInvalidMetadata)
	default:
		return 0, fmt.Errorf("%w: line_count has unsupported type %T", ErrInvalidMetadata, v)
	}
}

func decodeTags(raw map[string]any) ([]string, error) {
	value, present := raw[models.FieldTags]
	if !present {
		return nil, fmt.Errorf("%w: tags missing", ErrInvalidMetadata)
	}

	var candidates []string
	switch v := value.(type) {
	case nil:
	case string:
		candidates = []string{v}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	default:
		return nil, fmt.Errorf("%w: tags has unsupported type %T", ErrInvalidMetadata, value)
	}

	tags := make([]string, 0, MaxExtractedTags)
	for _, tag := range dedupe(candidates) {
		if len(tags) == MaxExtractedTags {
			break
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// dedupe trims, drops empty values and removes duplicates, keeping first-seen order
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

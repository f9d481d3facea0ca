package enrich

import (
	"context"
	"sort"
	"strings"

	"github.com/postpilot/internal/ai"
	"github.com/postpilot/pkg/logger"
)

// Unifier merges near-duplicate tags into a canonical vocabulary with one
// model call per batch.
type Unifier struct {
	llm ai.Completer
	log *logger.Logger
}

// NewUnifier creates a tag unifier
func NewUnifier(llm ai.Completer, log *logger.Logger) *Unifier {
	return &Unifier{
		llm: llm,
		log: log.WithComponent("unifier"),
	}
}

// Unify returns a mapping from original tag to canonical tag. Tags absent
// from the mapping are meant to pass through unchanged (see ApplyMapping).
// An empty tag set yields an empty mapping without calling the model.
func (u *Unifier) Unify(ctx context.Context, tags []string) (map[string]string, error) {
	unique := dedupe(tags)
	if len(unique) == 0 {
		return map[string]string{}, nil
	}
	sort.Strings(unique)

	reply, err := u.llm.Complete(ctx, ai.RenderUnificationPrompt(unique))
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := ai.DecodeJSON(reply, &raw); err != nil {
		u.log.Error().Err(err).Str("response", reply).Msg("Failed to parse unification response")
		return nil, err
	}

	mapping := make(map[string]string, len(raw))
	for original, value := range raw {
		canonical, ok := value.(string)
		if !ok {
			u.log.Warn().Str("tag", original).Msgf("Ignoring non-string canonical tag of type %T", value)
			continue
		}
		canonical = strings.TrimSpace(canonical)
		if canonical == "" {
			continue
		}
		mapping[original] = canonical
	}

	u.log.Debug().
		Int("tags_in", len(unique)).
		Int("mapped", len(mapping)).
		Msg("Unified tags")

	return mapping, nil
}

// ApplyMapping maps each tag through the mapping (identity for unknown tags)
// and removes duplicates, keeping first-seen order.
func ApplyMapping(tags []string, mapping map[string]string) []string {
	mapped := make([]string, 0, len(tags))
	for _, tag := range tags {
		if canonical, ok := mapping[tag]; ok {
			mapped = append(mapped, canonical)
		} else {
			mapped = append(mapped, tag)
		}
	}
	return dedupe(mapped)
}

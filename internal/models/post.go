package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Corpus field names written by enrichment
const (
	FieldText      = "text"
	FieldLineCount = "line_count"
	FieldLanguage  = "language"
	FieldTags      = "tags"
)

// Language is the language a post is written in
type Language string

const (
	LanguageEnglish  Language = "English"
	LanguageHinglish Language = "Hinglish" // Hindi + English, written in Latin script
)

// Languages lists every supported language in display order
var Languages = []Language{LanguageEnglish, LanguageHinglish}

// ParseLanguage matches a language name case-insensitively
func ParseLanguage(s string) (Language, error) {
	for _, l := range Languages {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// Length is the size category of a post
type Length string

const (
	LengthShort  Length = "Short"
	LengthMedium Length = "Medium"
	LengthLong   Length = "Long"
)

// Lengths lists every length category in display order
var Lengths = []Length{LengthShort, LengthMedium, LengthLong}

// ParseLength matches a length category case-insensitively
func ParseLength(s string) (Length, error) {
	for _, l := range Lengths {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported length %q", s)
}

// CategorizeLength buckets a line count: under 5 is Short, 5 to 10 Medium, otherwise Long
func CategorizeLength(lineCount int) Length {
	switch {
	case lineCount < 5:
		return LengthShort
	case lineCount <= 10:
		return LengthMedium
	default:
		return LengthLong
	}
}

// LineRange is the target line span used when asking the model for a post of this length
func (l Length) LineRange() string {
	switch l {
	case LengthShort:
		return "1 to 5 lines"
	case LengthMedium:
		return "6 to 10 lines"
	case LengthLong:
		return "11 to 15 lines"
	default:
		return ""
	}
}

// Metadata is what the model infers about a single post
type Metadata struct {
	LineCount int      `json:"line_count"`
	Language  Language `json:"language"`
	Tags      []string `json:"tags"`
}

// Post is one corpus entry. Only "text" is required; every other field is
// carried through enrichment untouched.
type Post map[string]any

// Text returns the post body and whether it is present as a string
func (p Post) Text() (string, bool) {
	text, ok := p[FieldText].(string)
	return text, ok
}

// Clone returns a shallow copy of the post
func (p Post) Clone() Post {
	out := make(Post, len(p)+3)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// WithMetadata returns a copy of the post with the metadata fields set.
// Extracted fields win over any pre-existing field with the same name.
func (p Post) WithMetadata(md Metadata) Post {
	out := p.Clone()
	out[FieldLineCount] = md.LineCount
	out[FieldLanguage] = string(md.Language)
	out[FieldTags] = append([]string(nil), md.Tags...)
	return out
}

// Tags returns the tag list of an enriched post. Values decoded from JSON
// ([]any) and values set in-process ([]string) are both accepted.
func (p Post) Tags() []string {
	switch v := p[FieldTags].(type) {
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}

// SetTags replaces the tag list
func (p Post) SetTags(tags []string) {
	p[FieldTags] = tags
}

// HasTag reports whether the post carries the tag
func (p Post) HasTag(tag string) bool {
	for _, t := range p.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// Language returns the language of an enriched post, or "" if unset
func (p Post) Language() Language {
	s, _ := p[FieldLanguage].(string)
	return Language(s)
}

// LineCount returns the line count of an enriched post. Posts built in
// memory hold an int; decoded posts hold a float64 or a json.Number.
func (p Post) LineCount() (int, bool) {
	switch v := p[FieldLineCount].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

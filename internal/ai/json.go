package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON returns the span of a model reply from the first '{' to the
// last '}', so chatty wrapper text and code fences around the object are
// tolerated. A reply with an opening brace but no closing one was cut off
// mid-object; its tail is returned so that decoding reports it as malformed.
func ExtractJSON(reply string) (string, error) {
	start := strings.Index(reply, "{")
	if start == -1 {
		return "", ErrNoJSONFound
	}
	end := strings.LastIndex(reply, "}")
	if end < start {
		return reply[start:], nil
	}
	return reply[start : end+1], nil
}

// DecodeJSON extracts the JSON object from a model reply and unmarshals it
// into target. Errors wrap ErrNoJSONFound or ErrMalformedJSON.
func DecodeJSON(reply string, target any) error {
	span, err := ExtractJSON(reply)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(span), target); err != nil {
		return fmt.Errorf("%w (%v; payload snippet: %s)", ErrMalformedJSON, err, snippet(span))
	}
	return nil
}

func snippet(s string) string {
	const limit = 120
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

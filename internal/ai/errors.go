package ai

import (
	"errors"
	"fmt"
)

// ErrParse is the parent of every error caused by a reply that could not be
// turned into structured data.
var ErrParse = errors.New("parse error")

var (
	// ErrNoJSONFound means the reply contained no {...} span.
	ErrNoJSONFound = fmt.Errorf("%w: no JSON found in LLM output", ErrParse)
	// ErrMalformedJSON means a {...} span was found but did not parse,
	// typically because the output was cut off at the token limit.
	ErrMalformedJSON = fmt.Errorf("%w: malformed JSON or context too big", ErrParse)
)

// ErrEmptyPrompt is returned before any network call when the rendered prompt is blank.
var ErrEmptyPrompt = errors.New("prompt is empty")

// TransportError wraps a failed upstream call. It is never retried by the adapter.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

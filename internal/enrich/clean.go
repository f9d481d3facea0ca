package enrich

import "strings"

// CleanText drops byte sequences that are not valid UTF-8, including encoded
// lone surrogates. Valid characters are kept in order, U+FFFD among them, so
// the result is a subsequence of the input.
func CleanText(text string) string {
	return strings.ToValidUTF8(text, "")
}

package ai

import (
	"fmt"
	"strings"
)

// Metadata extraction prompt. %s is the cleaned post text.
const MetadataExtractionPrompt = `You are given a LinkedIn post. You need to extract number of lines, language of the post and tags.
1. Return a valid JSON. No preamble.
2. JSON object should have exactly three keys: line_count, language and tags.
3. tags is an array of text tags. Extract maximum two tags.
4. Language should be English or Hinglish (Hinglish means hindi + english)

Here is the actual post on which you need to perform this task:
%s`

// Tag unification prompt. %s is the comma-separated tag list.
const TagUnificationPrompt = `I will give you a list of tags. You need to unify tags with the following requirements:
1. Tags are unified and merged to create a shorter list.
2. Each tag should follow title case convention.
3. Output should be a JSON object only, no explanation, no extra text.
4. Keys are original tags, values are unified tags.

List of tags:
%s`

// Post generation prompts
const (
	PostGenerationPrompt = `Generate a LinkedIn post using the below information. No preamble.

1) Topic: %s
2) Length: %s
3) Language: %s
If Language is Hinglish then it means it is a mix of Hindi and English.
The script for the generated post should always be English.`

	FewShotIntro = "\n4) Use the writing style as per the following examples."

	FewShotExample = "\n\nExample %d:\n\n%s"
)

// RenderMetadataPrompt renders the extraction prompt for one post
func RenderMetadataPrompt(postText string) string {
	return fmt.Sprintf(MetadataExtractionPrompt, postText)
}

// RenderUnificationPrompt renders the unification prompt for a tag list
func RenderUnificationPrompt(tags []string) string {
	return fmt.Sprintf(TagUnificationPrompt, strings.Join(tags, ","))
}

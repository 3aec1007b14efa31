package rag

import "regexp"

// Chat channels like WhatsApp render markdown emphasis literally, so the
// system prompt forbids it and this strip runs post-hoc as a second line of
// defense. Order matters: double markers before single.
var markdownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\*\*([^*]+)\*\*`),
	regexp.MustCompile(`\*([^*]+)\*`),
	regexp.MustCompile(`__([^_]+)__`),
	regexp.MustCompile(`_([^_]+)_`),
	regexp.MustCompile(`~~([^~]+)~~`),
}

// StripMarkdown removes emphasis markers (**, *, __, _, ~~), keeping the
// wrapped text. Idempotent: stripping already-clean text is a no-op.
func StripMarkdown(text string) string {
	for _, pattern := range markdownPatterns {
		text = pattern.ReplaceAllString(text, "$1")
	}
	return text
}

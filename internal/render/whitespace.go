package render

import (
	"regexp"
	"strings"
)

// Markers survive normalization untouched and are expanded once, after the
// outermost layer has been rendered.
const (
	nbspMark  = "\uE000"
	blankMark = "\uE001"
)

var (
	breakTag = regexp.MustCompile(`(?i)<br\s*/?>`)
	spaceRun = regexp.MustCompile(`[^\S\n]+`)
)

// Normalize applies HTML-like whitespace rules:
//   - runs of spaces and tabs collapse to one space
//   - lines are trimmed and blank lines dropped
//   - each <br> (or <br/>) breaks the line and leaves one blank line in its place
//   - &nbsp; is protected until Expand
//
// Normalize is idempotent, so rendered layers can be embedded in one another.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "&nbsp;", nbspMark)
	text = breakTag.ReplaceAllString(text, "\n"+blankMark+"\n")
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Expand turns protected markers into their final text and drops trailing
// blank lines. Call it once on the outermost output.
func Expand(text string) string {
	text = strings.ReplaceAll(text, blankMark, "")
	text = strings.TrimRight(text, "\n")
	return strings.ReplaceAll(text, nbspMark, " ")
}

// Finish normalizes and expands a standalone render.
func Finish(text string) string {
	return Expand(Normalize(text))
}

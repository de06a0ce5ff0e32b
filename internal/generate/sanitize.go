package generate

import (
	"regexp"
	"strings"
)

// stripCodeFences removes fenced blocks like ```html ... ``` or ``` ... ```
// while keeping their content, then drops any stray fence markers.
func stripCodeFences(text string) string {
	text = fenceHTML.ReplaceAllString(text, "$1")
	text = fenceAny.ReplaceAllString(text, "$1")
	return strings.ReplaceAll(text, "```", "")
}

// replacePlaceholders substitutes recognized name/surname placeholder forms
// with the row's real values.
func replacePlaceholders(text, name, surname string) string {
	for _, p := range placeholderPatterns {
		val := name
		if p.field == "surname" {
			val = surname
		}
		text = p.re.ReplaceAllString(text, val)
	}
	return text
}

// hasPlaceholder reports whether placeholder-like residue remains.
func hasPlaceholder(text string) bool {
	return placeholderProbe.MatchString(text)
}

// StripClosing strips the known closing-salutation boilerplate
// variants and collapses 3+ consecutive blank lines to 2.
func StripClosing(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		text = re.ReplaceAllString(text, "")
	}
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

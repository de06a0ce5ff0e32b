package generate

import (
	"regexp"
	"strings"
)

// The sanitizer works on versioned pattern lists so tests can enumerate exact
// coverage. Placeholder and fence patterns are static; the closing-salutation
// patterns depend on the organization name and are compiled per Generator.

// Recognized leftover placeholder forms for name/surname, case-insensitive.
var placeholderPatterns = []struct {
	re    *regexp.Regexp
	field string // "name" or "surname"
}{
	{regexp.MustCompile(`(?i)\{\s*name\s*\}`), "name"},
	{regexp.MustCompile(`(?i)\{\s*surname\s*\}`), "surname"},
	{regexp.MustCompile(`(?i)\[\[\s*name\s*\]\]`), "name"},
	{regexp.MustCompile(`(?i)\[\[\s*surname\s*\]\]`), "surname"},
	{regexp.MustCompile(`(?i)\[\s*name\s*\]`), "name"},
	{regexp.MustCompile(`(?i)\[\s*surname\s*\]`), "surname"},
	{regexp.MustCompile(`(?i)<\s*name\s*>`), "name"},
	{regexp.MustCompile(`(?i)<\s*surname\s*>`), "surname"},
}

// placeholderProbe detects placeholder-like residue that should trigger a
// regeneration.
var placeholderProbe = regexp.MustCompile(`(?i)\{\s*name|\{\s*surname|\[\[|\{\{|<\s*name`)

// Code-fence artifacts providers sometimes wrap output in.
var (
	fenceHTML = regexp.MustCompile("(?i)```\\s*html\\s*([\\s\\S]*?)```")
	fenceAny  = regexp.MustCompile("```([\\s\\S]*?)```")
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// ClosingPatterns builds the unwanted "Sincerely / the <org> team" variants
// for one organization name, HTML and plain-text forms alike.
func ClosingPatterns(org string) []*regexp.Regexp {
	o := orgPattern(org)
	return []*regexp.Regexp{
		// HTML block: <p>Sincerely,</p><p>The Org Team</p>, attributes allowed.
		regexp.MustCompile(`(?is)<(p|div)[^>]*>\s*sincerely[,\s]*</(?:p|div)>\s*(?:<(?:p|div)[^>]*>\s*the\s+` + o + `\s+team\s*</(?:p|div)>)?`),
		// Inline with <br> or entities between.
		regexp.MustCompile(`(?is)sincerely\s*(?:<br\s*/?>|&nbsp;|\s){1,5}the\s+` + o + `\s+team`),
		// Plain text across line breaks.
		regexp.MustCompile(`(?im)\s*sincerely,?\s*(?:\r\n|\n|\s){0,5}the\s+` + o + `\s+team\s*`),
		// Single-line catch-all.
		regexp.MustCompile(`(?i)sincerely,?\s*the\s+` + o + `\s+team`),
	}
}

// orgPattern turns an organization name into a whitespace-tolerant regexp
// fragment.
func orgPattern(org string) string {
	tokens := strings.Fields(org)
	if len(tokens) == 0 {
		return regexp.QuoteMeta(org)
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return strings.Join(quoted, `\s+`)
}

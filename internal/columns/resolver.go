package columns

import (
	"regexp"
	"strings"
)

// Logical fields every ingested sheet must resolve.
const (
	FieldName     = "name"
	FieldSurname  = "surname"
	FieldEmail    = "email"
	FieldFeedback = "feedback"
	FieldDecision = "decision"
)

// Fields lists the logical fields in resolution order.
var Fields = []string{FieldName, FieldSurname, FieldEmail, FieldFeedback, FieldDecision}

// Aliases maps each logical field to its recognized header spellings, in
// priority order.
var Aliases = map[string][]string{
	FieldName:     {"Name", "First Name", "FirstName", "Given Name", "First"},
	FieldSurname:  {"Surname", "Last Name", "LastName", "Last_Name", "Family Name", "Last"},
	FieldEmail:    {"Email Address", "Email", "E-mail", "EmailAddress", "Contact Email"},
	FieldFeedback: {"Interview Feedback/Notes", "Feedback", "Notes", "Interview Feedback"},
	FieldDecision: {"Proceed/Decline/Hold", "Decision", "Status"},
}

var nonAlnum = regexp.MustCompile(`[^0-9a-z]+`)

// Normalize lowercases a header, strips BOM/zero-width/NBSP characters,
// collapses runs of non-alphanumeric characters to a single space, and
// collapses repeated spaces.
func Normalize(s string) string {
	s = strings.Trim(s, "\ufeff\u200b\u00a0")
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Resolve maps a list of physical headers onto one logical field's alias
// list. Matching runs in three passes over the whole alias list, first hit
// wins: exact normalized match, substring match (alias inside header), then
// token subset (every alias token present among the header's tokens).
// Returns the original header spelling.
//
// A header matched for one field is deliberately not excluded from matching
// another field's aliases; the same physical column may satisfy several
// logical fields.
func Resolve(headers []string, aliases []string) (string, bool) {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = Normalize(h)
	}

	for _, alias := range aliases {
		na := Normalize(alias)
		for i, nh := range norm {
			if na != "" && na == nh {
				return headers[i], true
			}
		}
	}

	for _, alias := range aliases {
		na := Normalize(alias)
		if na == "" {
			continue
		}
		for i, nh := range norm {
			if strings.Contains(nh, na) {
				return headers[i], true
			}
		}
	}

	for _, alias := range aliases {
		tokens := strings.Fields(Normalize(alias))
		if len(tokens) == 0 {
			continue
		}
		for i, nh := range norm {
			if containsAll(strings.Fields(nh), tokens) {
				return headers[i], true
			}
		}
	}

	return "", false
}

// ResolveAll resolves every logical field against the header list. The second
// return value lists logical fields with no matching header.
func ResolveAll(headers []string) (map[string]string, []string) {
	mapped := make(map[string]string, len(Fields))
	var missing []string
	for _, field := range Fields {
		if header, ok := Resolve(headers, Aliases[field]); ok {
			mapped[field] = header
		} else {
			missing = append(missing, field)
		}
	}
	return mapped, missing
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, t := range haystack {
		set[t] = struct{}{}
	}
	for _, n := range needles {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

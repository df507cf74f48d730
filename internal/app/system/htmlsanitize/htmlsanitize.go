// Package htmlsanitize cleans user-entered free text before it is stored.
//
// The API stores plain text only, so every tag is stripped with bluemonday's
// strict policy. Entities are decoded afterwards so text such as
// "Fish & chips" is stored as typed. Decoding can surface markup that was
// sent escaped ("&lt;img&gt;"), so cleaning repeats until the text is stable.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// maxPasses bounds the decode/strip loop for deeply nested escapes.
const maxPasses = 8

// PlainText strips all markup, including markup hidden behind HTML
// entities, and trims surrounding whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	for i := 0; i < maxPasses && !IsPlainText(s); i++ {
		s = clean(s)
	}
	if !IsPlainText(s) {
		// still decoding into markup; keep the escaped form
		s = strict.Sanitize(s)
	}
	return strings.TrimSpace(s)
}

// IsPlainText reports whether s is unchanged by the strict policy, that is,
// it holds no tags and no entities that decode into tags.
func IsPlainText(s string) bool {
	return clean(s) == s
}

func clean(s string) string {
	return html.UnescapeString(strict.Sanitize(s))
}

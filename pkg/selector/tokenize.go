package selector

import (
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
)

// checker is the robust English stopword list; extraWords covers narrative
// filler the library leaves through.
var checker = stopwords.MustGet("en")

var extraWords = map[string]bool{
	"said": true, "says": true, "went": true, "came": true,
	"looked": true, "turned": true, "suddenly": true, "slowly": true,
}

// canonicalize folds text to lowercase, keeps letters, digits, apostrophes
// and hyphens, and collapses everything else into single spaces. Patterns
// and scanned text go through the same function so matching stays
// consistent.
func canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true
	for _, ch := range s {
		c := unicode.ToLower(ch)
		if c == '’' || c == '‘' {
			c = '\''
		}
		switch {
		case unicode.IsLetter(c) || unicode.IsDigit(c) || c == '\'' || c == '-':
			out.WriteRune(c)
			lastWasSpace = false
		default:
			if !lastWasSpace {
				out.WriteRune(' ')
				lastWasSpace = true
			}
		}
	}
	return strings.TrimRight(out.String(), " ")
}

// tokenize splits canonicalized text into stopword-filtered tokens.
func tokenize(text string) []string {
	words := strings.Fields(canonicalize(text))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if checker.Contains(w) || extraWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// tokenSet builds a membership set over tokenize output.
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range tokenize(text) {
		set[w] = true
	}
	return set
}

// sharesToken reports whether any token of text is in the set.
func sharesToken(set map[string]bool, text string) bool {
	for _, w := range tokenize(text) {
		if set[w] {
			return true
		}
	}
	return false
}

package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// KeySeparator joins the normalized title and description of a record key.
const KeySeparator = "::"

// Normalize reduces text to its canonical form: lower-cased, stripped of
// everything that is not a word character or whitespace, with stop words
// removed and the remaining words joined by single spaces.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Lower, not Fold: folding maps Cherokee lowercase to uppercase and back
	// again, so folded output is not a fixed point.
	lowered := cases.Lower(language.Und).String(text)
	words := strings.Fields(stripNonWord(lowered))

	kept := words[:0]
	for _, word := range words {
		if _, isStop := stopwords[word]; isStop {
			continue
		}
		kept = append(kept, word)
	}

	return strings.Join(kept, " ")
}

// NormalizeValue normalizes v when it is a string and returns "" otherwise.
// Graph properties arrive untyped and may be nil or numeric.
func NormalizeValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Normalize(s)
}

// JoinKey builds the store key of a title/description pair.
func JoinKey(title, description string) string {
	return Normalize(title) + KeySeparator + Normalize(description)
}

// stripNonWord drops every rune that is neither a word character
// (letter, number, underscore) nor whitespace.
func stripNonWord(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}

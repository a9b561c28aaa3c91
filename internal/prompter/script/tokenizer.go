// Package script provides the tokenizer and the immutable word sequence a
// prompter session reads through.
package script

import (
	"strings"
	"unicode"
)

// Token is a single word of a script or of a transcript snippet.
type Token struct {
	Raw  string // Surface form as written, used for display
	Norm string // Lowercased, only letters, digits and underscore
}

// Tokenize splits text on runs of whitespace and normalizes every word.
// Words that normalize to the empty string (pure punctuation) are dropped.
// Empty input yields an empty slice.
func Tokenize(text string) []Token {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}

	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		norm := Normalize(f)
		if norm == "" {
			continue
		}
		tokens = append(tokens, Token{Raw: f, Norm: norm})
	}
	return tokens
}

// Normalize lowercases word and strips every rune that is not a letter,
// a digit or an underscore.
func Normalize(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// CountWords returns the number of tokens Tokenize would produce for text.
func CountWords(text string) int {
	n := 0
	for _, f := range strings.Fields(text) {
		if Normalize(f) != "" {
			n++
		}
	}
	return n
}

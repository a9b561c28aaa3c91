package script

import (
	"errors"
	"math"
	"time"
)

// ReadingWordsPerMinute is the average reading speed used for estimates.
const ReadingWordsPerMinute = 150

// ErrScriptEmpty is returned when a script has no words after tokenizing.
var ErrScriptEmpty = errors.New("script is empty")

// Script is an ordered, immutable sequence of tokens derived once from the
// raw input text. It is safe for concurrent reads.
type Script struct {
	tokens []Token
}

// New tokenizes text into a Script. Empty or whitespace-only text (or text
// made only of punctuation) returns ErrScriptEmpty.
func New(text string) (*Script, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrScriptEmpty
	}
	return &Script{tokens: tokens}, nil
}

// Len returns the number of words in the script.
func (s *Script) Len() int {
	return len(s.tokens)
}

// At returns the token at index i.
func (s *Script) At(i int) Token {
	return s.tokens[i]
}

// Window returns up to n tokens starting at start, truncated at the end of
// the script. The returned slice must not be modified.
func (s *Script) Window(start, n int) []Token {
	if start < 0 || start >= len(s.tokens) || n <= 0 {
		return nil
	}
	end := start + n
	if end > len(s.tokens) {
		end = len(s.tokens)
	}
	return s.tokens[start:end:end]
}

// Words returns the raw surface forms, in order.
func (s *Script) Words() []string {
	words := make([]string, len(s.tokens))
	for i, t := range s.tokens {
		words[i] = t.Raw
	}
	return words
}

// Info summarizes a script for display before a session starts.
type Info struct {
	WordCount            int
	EstimatedReadingTime time.Duration
}

// Info returns the word count and estimated reading time of the script.
func (s *Script) Info() Info {
	return InfoFor(len(s.tokens))
}

// InfoFor estimates reading time for words at ReadingWordsPerMinute,
// whole minutes plus seconds rounded to the nearest second.
func InfoFor(words int) Info {
	exact := float64(words) / ReadingWordsPerMinute
	minutes := math.Floor(exact)
	seconds := math.Round((exact - minutes) * 60)
	return Info{
		WordCount:            words,
		EstimatedReadingTime: time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second,
	}
}

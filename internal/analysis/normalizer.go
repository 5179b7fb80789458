// Package analysis turns raw document text into the normalized term sequence
// the inverted index is built from. The pipeline runs in a fixed order:
// whitespace split, URL removal, Unicode word segmentation, digit filter,
// lowercasing, stop-word removal and Porter stemming. A stem that is itself a
// stop word is dropped too.
package analysis

import (
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/blevesearch/segment"
)

var urlPrefixes = []string{"http://", "https://"}

// Normalizer applies the normalization pipeline. The stop-word set is fixed
// at construction and never mutated, so a Normalizer is safe for concurrent
// use.
type Normalizer struct {
	stopWords map[string]struct{}
}

type Option func(*Normalizer)

// WithStopWords replaces the default stop-word set. Words are matched against
// lowercased tokens, so they should be given in lowercase.
func WithStopWords(words ...string) Option {
	return func(n *Normalizer) {
		n.stopWords = stopSet(words)
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{stopWords: stopSet(defaultStopWords)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the normalized terms of text in order. The index of a
// term in the returned slice is its position within the document.
func (n *Normalizer) Normalize(text string) []string {
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		if isURL(field) {
			continue
		}
		for _, word := range Words(field) {
			if containsDigit(word) {
				continue
			}
			word = strings.ToLower(word)
			if n.IsStopWord(word) {
				continue
			}
			// stemming can land on a stop word ("being" -> "be")
			term := stem(word)
			if n.IsStopWord(term) {
				continue
			}
			terms = append(terms, term)
		}
	}
	return terms
}

// NormalizeTerm lowercases and stems a single query word. It applies no
// stop-word, URL or digit filtering and does not strip punctuation.
func (n *Normalizer) NormalizeTerm(word string) string {
	if word == "" {
		return ""
	}
	return stem(strings.ToLower(word))
}

func (n *Normalizer) IsStopWord(word string) bool {
	_, ok := n.stopWords[word]
	return ok
}

// Words segments s into Unicode words (UAX #29), dropping whitespace and
// punctuation segments. Invalid UTF-8 separates words like a space.
func Words(s string) []string {
	s = strings.ToValidUTF8(s, " ")
	seg := segment.NewWordSegmenterDirect([]byte(s))
	var words []string
	for seg.Segment() {
		if seg.Type() == segment.None {
			continue
		}
		words = append(words, seg.Text())
	}
	if seg.Err() != nil {
		return strings.FieldsFunc(s, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	}
	return words
}

func isURL(token string) bool {
	for _, prefix := range urlPrefixes {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	return false
}

func containsDigit(word string) bool {
	return strings.IndexFunc(word, unicode.IsDigit) >= 0
}

// stem expects lowercase input. A word the stemmer would reduce to nothing is
// kept as is.
func stem(word string) string {
	stemmed := string(porterstemmer.StemWithoutLowerCasing([]rune(word)))
	if stemmed == "" {
		return word
	}
	return stemmed
}

package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := New()
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "  \t\n ", []string{}},
		{"simple", "data retrieval system", []string{"data", "retriev", "system"}},
		{"lowercases", "Information Retrieval MODEL", []string{"inform", "retriev", "model"}},
		{"drops stop words", "the data of all systems", []string{"data", "system"}},
		{"stop words match after lowercasing", "The IS Of", []string{}},
		{"drops urls", "see https://example.com and http://x.org/a now", []string{"see", "now"}},
		{"url prefix is case sensitive", "HTTP://example", []string{"http", "exampl"}},
		{"drops digit tokens", "route66 version2 2024 retrieval", []string{"retriev"}},
		{"strips punctuation", "data, retrieval; (system).", []string{"data", "retriev", "system"}},
		{"pure punctuation yields nothing", "-- ... !!", []string{}},
		{"stems", "running connected caresses ponies", []string{"run", "connect", "caress", "poni"}},
		{"stems that are stop words are dropped", "being having doing hers cans ups", []string{}},
		{"invalid utf-8 splits words", "alpha\xff\xfebeta delta", []string{"alpha", "beta", "delta"}},
		{"invalid utf-8 alone yields nothing", "\xff\xfe", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.text)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	n := New()
	text := "Boolean retrieval models use sets; proximity queries use positions."
	assert.Equal(t, n.Normalize(text), n.Normalize(text))
}

func TestNormalize_OutputInvariants(t *testing.T) {
	n := New()
	text := "The Quick brown FOX jumped over 3 lazy dogs at https://dogs.example in 2024!"
	for _, term := range n.Normalize(text) {
		assert.NotEmpty(t, term)
		assert.False(t, n.IsStopWord(term), term)
		assert.False(t, containsDigit(term), term)
	}
}

func TestNormalize_TermsAreStable(t *testing.T) {
	n := New()
	text := "being having doing hers cans ups data retrieval systems boolean proximity"
	for _, term := range n.Normalize(text) {
		assert.False(t, n.IsStopWord(term), term)
		assert.Equal(t, []string{term}, n.Normalize(term), term)
	}
}

func TestWords_InvalidUTF8(t *testing.T) {
	assert.Equal(t, []string{"alpha", "beta"}, Words("alpha\xffbeta"))
	assert.Equal(t, []string{"data", "system"}, Words("data,\xc3system"))
}

func TestWithStopWords(t *testing.T) {
	n := New(WithStopWords("data"))

	assert.Equal(t, []string{"the", "retriev"}, n.Normalize("the data retrieval"))
	assert.False(t, n.IsStopWord("the"))
	assert.True(t, n.IsStopWord("data"))
}

func TestDefaultStopWords(t *testing.T) {
	words := DefaultStopWords()
	assert.Len(t, words, 26)
	assert.Contains(t, words, "do")

	words[0] = "mutated"
	assert.Equal(t, "a", DefaultStopWords()[0])
}

func TestNormalizeTerm(t *testing.T) {
	n := New()
	tests := []struct {
		word string
		want string
	}{
		{"Retrieval", "retriev"},
		{"SYSTEMS", "system"},
		{"the", "the"},
		{"data2", "data2"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, n.NormalizeTerm(tt.word))
		})
	}
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, Words("hello, world!"))
	assert.Empty(t, Words("?!"))
}

func TestStem_NeverEmpty(t *testing.T) {
	for _, w := range []string{"a", "s", "ss", "ies", "e"} {
		assert.NotEmpty(t, stem(w), w)
	}
}

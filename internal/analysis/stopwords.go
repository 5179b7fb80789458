package analysis

// defaultStopWords is the fixed list dropped during normalization. Words are
// compared after lowercasing and before stemming.
var defaultStopWords = []string{
	"a", "is", "the", "of", "all", "and", "to", "can", "be", "as",
	"once", "for", "at", "am", "are", "has", "have", "had", "up",
	"his", "her", "in", "on", "no", "we", "do",
}

// DefaultStopWords returns a copy of the default stop-word list.
func DefaultStopWords() []string {
	out := make([]string, len(defaultStopWords))
	copy(out, defaultStopWords)
	return out
}

func stopSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Package index holds the positional inverted index: for every term, the
// documents containing it and the zero-based positions at which it occurs.
package index

import "sort"

// Postings maps a document ID to the ascending positions of one term in that
// document.
type Postings map[string][]int

// Inverted is a positional inverted index. It is populated only by Builder
// and is read-only afterwards, so any number of goroutines may query it.
//
// A term is present iff it occurs in at least one document, and a document
// appears under a term iff the term occurs in it.
type Inverted struct {
	terms map[string]Postings
	docs  map[string]int
}

func newInverted() *Inverted {
	return &Inverted{
		terms: make(map[string]Postings),
		docs:  make(map[string]int),
	}
}

func (idx *Inverted) addDocument(docID string, terms []string) {
	// a repeated ID continues after the earlier text so positions stay ascending
	offset := idx.docs[docID]
	idx.docs[docID] = offset + len(terms)
	for i, term := range terms {
		pos := offset + i
		postings, ok := idx.terms[term]
		if !ok {
			postings = make(Postings)
			idx.terms[term] = postings
		}
		postings[docID] = append(postings[docID], pos)
	}
}

// Docs returns the documents containing term. An absent term yields an empty
// set. The returned set is owned by the caller.
func (idx *Inverted) Docs(term string) DocSet {
	postings := idx.terms[term]
	out := make(DocSet, len(postings))
	for id := range postings {
		out[id] = struct{}{}
	}
	return out
}

// Positions returns the positions of term in docID, or nil. The slice is
// shared with the index and must not be modified.
func (idx *Inverted) Positions(term, docID string) []int {
	return idx.terms[term][docID]
}

func (idx *Inverted) Contains(term string) bool {
	_, ok := idx.terms[term]
	return ok
}

// DocFrequency is the number of documents containing term.
func (idx *Inverted) DocFrequency(term string) int {
	return len(idx.terms[term])
}

// Terms returns every indexed term in ascending order.
func (idx *Inverted) Terms() []string {
	terms := make([]string, 0, len(idx.terms))
	for t := range idx.terms {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// DocIDs returns the IDs of every indexed document, including documents that
// normalized to no terms.
func (idx *Inverted) DocIDs() []string {
	ids := make([]string, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats summarizes an index.
type Stats struct {
	Documents int `json:"documents"`
	Terms     int `json:"terms"`
	Postings  int `json:"postings"`
	Tokens    int `json:"tokens"`
}

func (idx *Inverted) Stats() Stats {
	st := Stats{Documents: len(idx.docs), Terms: len(idx.terms)}
	for _, postings := range idx.terms {
		st.Postings += len(postings)
	}
	for _, n := range idx.docs {
		st.Tokens += n
	}
	return st
}

package corpus

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a concurrency-safe in-memory corpus. It backs the kafka
// corpus source, where document events arrive incrementally.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]string
}

func NewMemoryStore(docs ...Document) *MemoryStore {
	s := &MemoryStore{docs: make(map[string]string, len(docs))}
	for _, d := range docs {
		s.docs[d.ID] = d.Text
	}
	return s
}

// Upsert stores doc, replacing any document with the same ID. It reports
// whether the stored text changed.
func (s *MemoryStore) Upsert(doc Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.docs[doc.ID]
	if ok && old == doc.Text {
		return false
	}
	s.docs[doc.ID] = doc.Text
	return true
}

// Delete removes the document with id and reports whether it existed.
func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	return true
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Load returns a snapshot sorted by ID.
func (s *MemoryStore) Load(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	docs := make([]Document, 0, len(s.docs))
	for id, text := range s.docs {
		docs = append(docs, Document{ID: id, Text: text})
	}
	s.mu.RUnlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

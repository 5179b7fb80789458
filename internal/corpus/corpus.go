// Package corpus loads the documents an index is built from. A Source may be
// a directory of text files, a PostgreSQL table, or an in-memory store fed by
// Kafka document events.
package corpus

import (
	"context"
	"path/filepath"
	"strings"
)

// Document is a unit of text identified by ID. IDs are assumed unique within
// a corpus.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Source produces a snapshot of the corpus.
type Source interface {
	Load(ctx context.Context) ([]Document, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Document, error)

func (f SourceFunc) Load(ctx context.Context) ([]Document, error) {
	return f(ctx)
}

// DisplayName strips the file extension from a document ID, so "doc1.txt"
// is shown as "doc1".
func DisplayName(id string) string {
	return strings.TrimSuffix(id, filepath.Ext(id))
}

// DisplayNames maps DisplayName over ids.
func DisplayNames(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = DisplayName(id)
	}
	return out
}

// Document event operations.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// DocumentEvent is the Kafka message that adds, replaces or removes one
// document. Text is empty for deletes.
type DocumentEvent struct {
	Op   string `json:"op"`
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
}

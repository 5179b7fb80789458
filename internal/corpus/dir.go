package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/errors"
)

// DirSource reads every regular file directly inside Dir as one document.
// Subdirectories are not descended into. The file name is the document ID.
type DirSource struct {
	Dir    string
	logger *slog.Logger
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{
		Dir:    dir,
		logger: slog.Default().With("component", "dir-source", "dir", dir),
	}
}

// Load returns the documents sorted by ID. Files that cannot be read are
// skipped with a warning; a missing or unreadable directory is an error.
func (s *DirSource) Load(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading corpus directory %s: %w", apperrors.ErrCorpusUnavailable, s.Dir, err)
	}
	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Dir, entry.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable document", "file", entry.Name(), "error", err)
			continue
		}
		docs = append(docs, Document{ID: entry.Name(), Text: decodeText(data)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	s.logger.Debug("corpus loaded", "doc_count", len(docs))
	return docs, nil
}

// decodeText treats data as UTF-8, replacing invalid sequences.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

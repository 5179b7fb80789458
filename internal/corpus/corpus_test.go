package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDirSource_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc2.txt", "information retrieval model")
	writeFile(t, dir, "doc1.txt", "data retrieval system")
	writeFile(t, dir, ".hidden", "ignored")
	writeFile(t, dir, "latin1.txt", "caf\xe9")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeFile(t, filepath.Join(dir, "nested"), "doc3.txt", "not loaded")

	docs, err := NewDirSource(dir).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 3)
	assert.Equal(t, Document{ID: "doc1.txt", Text: "data retrieval system"}, docs[0])
	assert.Equal(t, "doc2.txt", docs[1].ID)
	assert.Equal(t, "latin1.txt", docs[2].ID)
	assert.Equal(t, "caf�", docs[2].Text)
}

func TestDirSource_Empty(t *testing.T) {
	docs, err := NewDirSource(t.TempDir()).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDirSource_Missing(t *testing.T) {
	_, err := NewDirSource(filepath.Join(t.TempDir(), "absent")).Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDirSource_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDirSource(dir).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(Document{ID: "b", Text: "beta"})

	assert.True(t, s.Upsert(Document{ID: "a", Text: "alpha"}))
	assert.False(t, s.Upsert(Document{ID: "a", Text: "alpha"}), "unchanged text")
	assert.True(t, s.Upsert(Document{ID: "a", Text: "alpha two"}))
	assert.Equal(t, 2, s.Len())

	docs, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Document{{ID: "a", Text: "alpha two"}, {ID: "b", Text: "beta"}}, docs)

	assert.True(t, s.Delete("b"))
	assert.False(t, s.Delete("b"))
	assert.Equal(t, 1, s.Len())
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"doc1.txt":        "doc1",
		"doc1":            "doc1",
		"archive.tar.gz":  "archive.tar",
		"notes.final.txt": "notes.final",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, DisplayName(in))
		})
	}
	assert.Equal(t, []string{"a", "b"}, DisplayNames([]string{"a.txt", "b.md"}))
}

func TestSourceFunc(t *testing.T) {
	src := SourceFunc(func(context.Context) ([]Document, error) {
		return []Document{{ID: "x"}}, nil
	})
	docs, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

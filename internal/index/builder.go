package index

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus"
)

// Builder turns a corpus snapshot into an Inverted index. Normalization can
// run on a worker pool; postings are always merged on the calling goroutine
// in document order, so the result does not depend on scheduling.
type Builder struct {
	normalizer *analysis.Normalizer
	workers    int
	logger     *slog.Logger
}

type BuilderOption func(*Builder)

// WithWorkers sets how many documents are normalized in parallel. Values
// below 2 build sequentially.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) { b.workers = n }
}

func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

func NewBuilder(normalizer *analysis.Normalizer, opts ...BuilderOption) *Builder {
	b := &Builder{
		normalizer: normalizer,
		workers:    1,
		logger:     slog.Default().With("component", "index-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build indexes docs. It cannot fail.
func (b *Builder) Build(docs []corpus.Document) *Inverted {
	idx, _ := b.BuildContext(context.Background(), docs)
	return idx
}

// BuildContext indexes docs, stopping early with ctx.Err() if ctx is done.
func (b *Builder) BuildContext(ctx context.Context, docs []corpus.Document) (*Inverted, error) {
	start := time.Now()
	terms, err := b.normalizeAll(ctx, docs)
	if err != nil {
		return nil, err
	}
	idx := newInverted()
	for i, doc := range docs {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		idx.addDocument(doc.ID, terms[i])
	}
	b.logger.Debug("index built",
		"doc_count", len(docs),
		"term_count", len(idx.terms),
		"workers", b.workers,
		"duration", time.Since(start),
	)
	return idx, nil
}

func (b *Builder) normalizeAll(ctx context.Context, docs []corpus.Document) ([][]string, error) {
	if b.workers < 2 || len(docs) < 2 {
		return b.normalizeSequential(ctx, docs)
	}
	pool, err := ants.NewPool(b.workers)
	if err != nil {
		b.logger.Warn("worker pool unavailable, normalizing sequentially", "error", err)
		return b.normalizeSequential(ctx, docs)
	}
	defer pool.Release()

	terms := make([][]string, len(docs))
	var wg sync.WaitGroup
	for i := range docs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			terms[i] = b.normalizer.Normalize(docs[i].Text)
		}
		if err := pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return terms, nil
}

func (b *Builder) normalizeSequential(ctx context.Context, docs []corpus.Document) ([][]string, error) {
	terms := make([][]string, len(docs))
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		terms[i] = b.normalizer.Normalize(doc.Text)
	}
	return terms, nil
}

// Build indexes docs with a sequential Builder.
func Build(normalizer *analysis.Normalizer, docs []corpus.Document) *Inverted {
	return NewBuilder(normalizer).Build(docs)
}

// Package searcher serves Boolean and proximity queries over a corpus. It
// keeps the built index in memory and rebuilds it lazily after the corpus is
// invalidated.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/tracing"
)

// Query kinds.
const (
	KindBoolean   = "boolean"
	KindProximity = "proximity"
)

// Result is the answer to one query. Documents are sorted IDs.
type Result struct {
	Query      string   `json:"query"`
	Kind       string   `json:"kind"`
	Parsed     string   `json:"parsed"`
	Documents  []string `json:"documents"`
	Total      int      `json:"total"`
	Generation uint64   `json:"generation"`
	Cached     bool     `json:"cached"`
}

// CacheKey identifies a result. Generation changes whenever the corpus is
// invalidated, so results computed against an older index are never served.
type CacheKey struct {
	Kind       string
	Generation uint64
	Query      string
}

// ResultCache stores query results. GetOrCompute reports whether the result
// came from the cache.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key CacheKey, compute func() (*Result, error)) (*Result, bool, error)
}

// Stats describes the current index.
type Stats struct {
	index.Stats
	Generation uint64    `json:"generation"`
	BuiltAt    time.Time `json:"built_at"`
}

type snapshot struct {
	idx        *index.Inverted
	generation uint64
	builtAt    time.Time
}

type Service struct {
	source  corpus.Source
	parser  *query.Parser
	builder *index.Builder
	cfg     config.IndexConfig
	metrics *metrics.Metrics
	cache   ResultCache
	logger  *slog.Logger

	generation atomic.Uint64
	mu         sync.RWMutex
	current    *snapshot
	group      singleflight.Group
}

type Option func(*Service)

func WithIndexConfig(cfg config.IndexConfig) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithCache(c ResultCache) Option {
	return func(s *Service) { s.cache = c }
}

// New creates a Service. The index is built on first use.
func New(source corpus.Source, normalizer *analysis.Normalizer, opts ...Option) *Service {
	s := &Service{
		source: source,
		parser: query.NewParser(normalizer),
		logger: slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = index.NewBuilder(normalizer, index.WithWorkers(s.cfg.Workers))
	return s
}

// Index returns the current index, building it if the corpus changed since
// the last build. Concurrent callers share one build.
func (s *Service) Index(ctx context.Context) (*index.Inverted, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.idx, nil
}

func (s *Service) snapshot(ctx context.Context) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	snap := s.current
	s.mu.RUnlock()
	if snap != nil && snap.generation == s.generation.Load() {
		return snap, nil
	}
	// a build already in flight may predate the latest invalidation; join it,
	// then build once more if it turned out stale
	for attempt := 0; ; attempt++ {
		// the build is not tied to any one waiting caller
		ch := s.group.DoChan("index", func() (any, error) {
			return s.rebuild(context.WithoutCancel(ctx))
		})
		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		snap = res.Val.(*snapshot)
		if attempt == 1 || snap.generation == s.generation.Load() {
			return snap, nil
		}
	}
}

func (s *Service) rebuild(ctx context.Context) (snap *snapshot, err error) {
	gen := s.generation.Load()
	s.mu.RLock()
	if cur := s.current; cur != nil && cur.generation == gen {
		s.mu.RUnlock()
		return cur, nil
	}
	s.mu.RUnlock()

	ctx, span := tracing.Start(ctx, "build-index")
	span.SetAttr("generation", gen)
	defer func() { span.End(err) }()

	start := time.Now()
	loadCtx, loadSpan := tracing.Start(ctx, "load-corpus")
	docs, err := s.source.Load(loadCtx)
	loadSpan.End(err)
	if err != nil {
		s.observeBuild("error", start)
		s.logger.Error("loading corpus failed", "error", err)
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	span.SetAttr("doc_count", len(docs))
	idx, err := resilience.Bounded(ctx, s.cfg.BuildTimeout(len(docs)), "build-index", func(ctx context.Context) (*index.Inverted, error) {
		return s.builder.BuildContext(ctx, docs)
	})
	if err != nil {
		status := "error"
		if errors.Is(err, apperrors.ErrTimeout) {
			status = "timeout"
		}
		s.observeBuild(status, start)
		s.logger.Error("building index failed", "doc_count", len(docs), "error", err)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrIndexUnavailable, err)
	}

	snap = &snapshot{idx: idx, generation: gen, builtAt: time.Now().UTC()}
	s.mu.Lock()
	if s.current == nil || s.current.generation <= gen {
		s.current = snap
	}
	s.mu.Unlock()

	st := idx.Stats()
	s.observeBuild("success", start)
	if s.metrics != nil {
		s.metrics.IndexedDocuments.Set(float64(st.Documents))
		s.metrics.IndexedTerms.Set(float64(st.Terms))
	}
	s.logger.Info("index built",
		"generation", gen,
		"doc_count", st.Documents,
		"term_count", st.Terms,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}

// Invalidate marks the current index stale. The next query rebuilds it.
// trigger labels the cause in metrics and logs.
func (s *Service) Invalidate(trigger string) {
	gen := s.generation.Add(1)
	if s.metrics != nil {
		s.metrics.CorpusInvalidations.WithLabelValues(trigger).Inc()
	}
	s.logger.Info("corpus invalidated", "trigger", trigger, "generation", gen)
}

// Rebuild invalidates the index and builds a fresh one immediately.
func (s *Service) Rebuild(ctx context.Context, trigger string) (Stats, error) {
	s.Invalidate(trigger)
	return s.Stats(ctx)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Stats: snap.idx.Stats(), Generation: snap.generation, BuiltAt: snap.builtAt}, nil
}

// Boolean evaluates a Boolean query such as "retrieval AND system NOT model".
func (s *Service) Boolean(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()
	q := s.parser.ParseBoolean(raw)
	if err := query.Validate(q); err != nil {
		s.observeQuery(KindBoolean, "invalid", start, 0)
		return nil, err
	}
	return s.run(ctx, KindBoolean, raw, q.String(), start, func(idx *index.Inverted) (index.DocSet, error) {
		return query.EvaluateBoolean(idx, q.Terms(), q.Operators())
	})
}

// Proximity evaluates a two-term proximity query with window k.
func (s *Service) Proximity(ctx context.Context, raw string, k int) (*Result, error) {
	start := time.Now()
	q, err := s.parser.ParseProximityQuery(raw, k)
	if err != nil {
		s.observeQuery(KindProximity, "invalid", start, 0)
		return nil, err
	}
	return s.run(ctx, KindProximity, raw, q.String(), start, func(idx *index.Inverted) (index.DocSet, error) {
		return query.EvaluateProximityQuery(idx, q)
	})
}

func (s *Service) run(
	ctx context.Context,
	kind, raw, parsed string,
	start time.Time,
	eval func(*index.Inverted) (index.DocSet, error),
) (*Result, error) {
	log := logger.FromContext(ctx)
	ctx, span := tracing.Start(ctx, "query")
	span.SetAttr("kind", kind)
	span.SetAttr("parsed", parsed)
	var err error
	defer func() { span.End(err) }()

	snap, err := s.snapshot(ctx)
	if err != nil {
		s.observeQuery(kind, "error", start, 0)
		return nil, err
	}
	compute := func() (*Result, error) {
		_, evalSpan := tracing.Start(ctx, "evaluate")
		docs, err := eval(snap.idx)
		evalSpan.End(err)
		if err != nil {
			return nil, err
		}
		ids := docs.Sorted()
		return &Result{
			Kind:       kind,
			Parsed:     parsed,
			Documents:  ids,
			Total:      len(ids),
			Generation: snap.generation,
		}, nil
	}

	var result *Result
	cached := false
	if s.cache != nil {
		key := CacheKey{Kind: kind, Generation: snap.generation, Query: parsed}
		result, cached, err = s.cache.GetOrCompute(ctx, key, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		outcome := "error"
		if apperrors.IsQueryError(err) {
			outcome = "invalid"
		}
		s.observeQuery(kind, outcome, start, 0)
		log.Error("query failed", "kind", kind, "query", raw, "error", err)
		return nil, err
	}

	out := *result
	out.Query = raw
	out.Cached = cached
	outcome := "hit"
	if out.Total == 0 {
		outcome = "zero_result"
	}
	s.observeQuery(kind, outcome, start, out.Total)
	log.Info("query completed",
		"kind", kind,
		"query", raw,
		"parsed", parsed,
		"total", out.Total,
		"cache_hit", cached,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &out, nil
}

func (s *Service) observeQuery(kind, outcome string, start time.Time, total int) {
	if s.metrics == nil {
		return
	}
	s.metrics.QueriesTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == "hit" || outcome == "zero_result" {
		s.metrics.QueryLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		s.metrics.QueryResultsCount.WithLabelValues(kind).Observe(float64(total))
	}
}

func (s *Service) observeBuild(status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		s.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
	}
}

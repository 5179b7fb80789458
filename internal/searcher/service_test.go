package searcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/metrics"
)

type countingSource struct {
	store *corpus.MemoryStore
	loads atomic.Int32
	err   error
}

func (s *countingSource) Load(ctx context.Context) ([]corpus.Document, error) {
	s.loads.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.store.Load(ctx)
}

func newSource() *countingSource {
	return &countingSource{store: corpus.NewMemoryStore(
		corpus.Document{ID: "doc1.txt", Text: "data retrieval system"},
		corpus.Document{ID: "doc2.txt", Text: "information retrieval model"},
	)}
}

func newService(src corpus.Source, opts ...Option) *Service {
	return New(src, analysis.New(), opts...)
}

func TestService_Boolean(t *testing.T) {
	svc := newService(newSource())

	res, err := svc.Boolean(context.Background(), "retrieval NOT system")
	require.NoError(t, err)
	assert.Equal(t, "retrieval NOT system", res.Query)
	assert.Equal(t, "retriev NOT system", res.Parsed)
	assert.Equal(t, KindBoolean, res.Kind)
	assert.Equal(t, []string{"doc2.txt"}, res.Documents)
	assert.Equal(t, 1, res.Total)
	assert.False(t, res.Cached)
}

func TestService_BooleanErrors(t *testing.T) {
	svc := newService(newSource())
	for raw, want := range map[string]error{
		"":                   apperrors.ErrEmptyQuery,
		"NOT system":         apperrors.ErrOperatorMismatch,
		"data system":        apperrors.ErrOperatorMismatch,
		"data AND system OR": apperrors.ErrOperatorMismatch,
	} {
		_, err := svc.Boolean(context.Background(), raw)
		assert.ErrorIs(t, err, want, raw)
	}
}

func TestService_Proximity(t *testing.T) {
	svc := newService(newSource())

	res, err := svc.Proximity(context.Background(), "data system", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1.txt"}, res.Documents)
	assert.Equal(t, "data /2 system", res.Parsed)

	res, err = svc.Proximity(context.Background(), "data system", 1)
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
	assert.Equal(t, 0, res.Total)

	_, err = svc.Proximity(context.Background(), "the data", 1)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientTerms)

	_, err = svc.Proximity(context.Background(), "data system", -1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidDistance)
}

func TestService_IndexCachedUntilInvalidated(t *testing.T) {
	src := newSource()
	svc := newService(src)
	ctx := context.Background()

	_, err := svc.Boolean(ctx, "data")
	require.NoError(t, err)
	_, err = svc.Boolean(ctx, "model")
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.loads.Load())

	src.store.Upsert(corpus.Document{ID: "doc3.txt", Text: "data model"})
	res, err := svc.Boolean(ctx, "data AND model")
	require.NoError(t, err)
	assert.Empty(t, res.Documents, "stale index until invalidated")

	svc.Invalidate("test")
	res, err = svc.Boolean(ctx, "data AND model")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc3.txt"}, res.Documents)
	assert.Equal(t, uint64(1), res.Generation)
	assert.Equal(t, int32(2), src.loads.Load())
}

func TestService_ConcurrentFirstQueriesShareBuild(t *testing.T) {
	src := newSource()
	svc := newService(src)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Boolean(context.Background(), "retrieval OR model")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, src.loads.Load(), int32(20))
	assert.GreaterOrEqual(t, src.loads.Load(), int32(1))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
}

func TestService_AbandonedWaiterDoesNotCancelBuild(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	src := corpus.SourceFunc(func(ctx context.Context) ([]corpus.Document, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return newSource().store.Load(ctx)
	})
	svc := newService(src)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := svc.Index(ctx)
		errc <- err
	}()
	<-started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
}

func TestService_SourceError(t *testing.T) {
	src := newSource()
	src.err = apperrors.ErrCorpusUnavailable
	svc := newService(src)

	_, err := svc.Boolean(context.Background(), "data")
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)

	src.err = nil
	_, err = svc.Boolean(context.Background(), "data")
	assert.NoError(t, err, "a failed build is retried on the next query")
}

func TestService_BuildTimeout(t *testing.T) {
	slow := corpus.SourceFunc(func(ctx context.Context) ([]corpus.Document, error) {
		docs := make([]corpus.Document, 2000)
		for i := range docs {
			docs[i] = corpus.Document{ID: "d", Text: "retrieval systems index documents for search"}
		}
		return docs, nil
	})
	svc := newService(slow, WithIndexConfig(config.IndexConfig{MinBuildTimeout: time.Nanosecond}))

	_, err := svc.Index(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrIndexUnavailable)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestService_Rebuild(t *testing.T) {
	src := newSource()
	svc := newService(src, WithIndexConfig(config.IndexConfig{Workers: 4}))

	stats, err := svc.Rebuild(context.Background(), "api")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Generation)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 5, stats.Terms)
	assert.False(t, stats.BuiltAt.IsZero())
}

type mapCache struct {
	mu      sync.Mutex
	results map[CacheKey]*Result
}

func (m *mapCache) GetOrCompute(_ context.Context, key CacheKey, compute func() (*Result, error)) (*Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.results[key]; ok {
		return r, true, nil
	}
	r, err := compute()
	if err != nil {
		return nil, false, err
	}
	m.results[key] = r
	return r, false, nil
}

func TestService_ResultCache(t *testing.T) {
	cache := &mapCache{results: make(map[CacheKey]*Result)}
	svc := newService(newSource(), WithCache(cache))
	ctx := context.Background()

	first, err := svc.Boolean(ctx, "retrieval AND system")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	// same normalized query, different spelling
	second, err := svc.Boolean(ctx, "RETRIEVAL and systems")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "RETRIEVAL and systems", second.Query)
	assert.Equal(t, first.Documents, second.Documents)

	svc.Invalidate("test")
	third, err := svc.Boolean(ctx, "retrieval AND system")
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Len(t, cache.results, 2)
}

func TestService_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := newService(newSource(), WithMetrics(m))

	_, err := svc.Boolean(context.Background(), "data")
	require.NoError(t, err)
	_, err = svc.Boolean(context.Background(), "unicorn")
	require.NoError(t, err)
	_, err = svc.Boolean(context.Background(), "AND")
	require.Error(t, err)
	svc.Invalidate("watcher")

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				label := f.GetName()
				for _, lp := range metric.GetLabel() {
					label += "," + lp.GetValue()
				}
				counts[label] = c.GetValue()
			}
			if g := metric.GetGauge(); g != nil && len(metric.GetLabel()) == 0 {
				counts[f.GetName()] = g.GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), counts["retrieval_queries_total,boolean,hit"])
	assert.Equal(t, float64(1), counts["retrieval_queries_total,boolean,zero_result"])
	assert.Equal(t, float64(1), counts["retrieval_queries_total,boolean,invalid"])
	assert.Equal(t, float64(1), counts["index_builds_total,success"])
	assert.Equal(t, float64(1), counts["corpus_invalidations_total,watcher"])
	assert.Equal(t, float64(2), counts["index_documents"])
	assert.Equal(t, float64(5), counts["index_terms"])
}

func TestService_CancelledContext(t *testing.T) {
	svc := newService(corpus.SourceFunc(func(ctx context.Context) ([]corpus.Document, error) {
		return nil, ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Boolean(ctx, "data")
	assert.True(t, errors.Is(err, context.Canceled))
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/searcher"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/logger"
)

type Searcher interface {
	Boolean(ctx context.Context, raw string) (*searcher.Result, error)
	Proximity(ctx context.Context, raw string, k int) (*searcher.Result, error)
	Rebuild(ctx context.Context, trigger string) (searcher.Stats, error)
	Stats(ctx context.Context) (searcher.Stats, error)
}

// Cache is the subset of *cache.QueryCache exposed over HTTP.
type Cache interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) (int64, error)
}

type Handler struct {
	searcher         Searcher
	cache            Cache
	defaultProximity int
	logger           *slog.Logger
}

// New creates a Handler. queryCache may be nil when caching is disabled.
func New(s Searcher, queryCache Cache, defaultProximity int) *Handler {
	return &Handler{
		searcher:         s,
		cache:            queryCache,
		defaultProximity: defaultProximity,
		logger:           slog.Default().With("component", "search-handler"),
	}
}

// Routes registers the query API on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search/boolean", h.Boolean)
	mux.HandleFunc("GET /api/v1/search/proximity", h.Proximity)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Boolean(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeAppError(r.Context(), w, apperrors.Invalid("query parameter 'q' is required"))
		return
	}
	result, err := h.searcher.Boolean(r.Context(), q)
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Proximity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeAppError(r.Context(), w, apperrors.Invalid("query parameter 'q' is required"))
		return
	}
	k := h.defaultProximity
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil || parsed < 0 {
			h.writeAppError(r.Context(), w, apperrors.Invalid("k must be a non-negative integer"))
			return
		}
		k = parsed
	}
	result, err := h.searcher.Proximity(r.Context(), q, k)
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	stats, err := h.searcher.Rebuild(r.Context(), "api")
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.searcher.Stats(r.Context())
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// writeAppError answers with the status and client message for err. Only
// failures of the service itself are logged.
func (h *Handler) writeAppError(ctx context.Context, w http.ResponseWriter, err error) {
	status, msg := apperrors.Describe(err)
	if !apperrors.IsQueryError(err) {
		logger.FromContext(ctx).Error("request failed", "status", status, "error", err)
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

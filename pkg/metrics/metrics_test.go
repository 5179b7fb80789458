package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew_RegistersOnProvidedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.QueriesTotal.WithLabelValues("boolean", "hit").Inc()
	m.IndexedDocuments.Set(2)

	body := scrape(t, reg)
	assert.Contains(t, body, `retrieval_queries_total{kind="boolean",outcome="hit"} 1`)
	assert.Contains(t, body, "index_documents 2")

	// a second registry keeps collectors independent
	other := prometheus.NewRegistry()
	New(other)
	assert.Contains(t, scrape(t, other), "index_documents 0")

	assert.Panics(t, func() { New(reg) }, "duplicate registration")
}

func TestHandler_ServesGatheredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IndexBuildsTotal.WithLabelValues("success").Inc()

	assert.Contains(t, scrape(t, reg), `index_builds_total{status="success"} 1`)
}

func TestStartServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).IndexedDocuments.Set(3)

	shutdown, err := StartServer("127.0.0.1:0", reg)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestStartServer_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = StartServer(ln.Addr().String(), prometheus.NewRegistry())
	assert.ErrorContains(t, err, "metrics listener")
}

// Package e2e exercises a running irsearch service over HTTP. When Kafka
// brokers are configured it also publishes a document and waits for it to
// become searchable.
//
// Prerequisites:
//   - irsearch serve running (E2E_SEARCHER_URL, default http://localhost:8080)
//   - for TestPublishAndSearch: the service started with corpus.source=kafka
//     and E2E_KAFKA_BROKERS pointing at the same brokers
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/kafka"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

type e2eConfig struct {
	SearcherURL string
	Brokers     []string
	Topic       string
}

func loadE2EConfig() e2eConfig {
	cfg := e2eConfig{
		SearcherURL: envOrDefault("E2E_SEARCHER_URL", "http://localhost:8080"),
		Topic:       envOrDefault("E2E_KAFKA_TOPIC", "corpus-documents"),
	}
	if v := os.Getenv("E2E_KAFKA_BROKERS"); v != "" {
		cfg.Brokers = strings.Split(v, ",")
	}
	return cfg
}

func requireService(t *testing.T, cfg e2eConfig) *http.Client {
	t.Helper()
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(cfg.SearcherURL + "/health/live")
	if err != nil {
		t.Skipf("retrieval service unavailable: %v", err)
	}
	resp.Body.Close()
	return client
}

func getJSON(t *testing.T, client *http.Client, rawURL string, out any) int {
	t.Helper()
	resp, err := client.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decoding %s: %v (%s)", rawURL, err, body)
		}
	}
	return resp.StatusCode
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestServiceHealth(t *testing.T) {
	cfg := loadE2EConfig()
	client := requireService(t, cfg)

	for _, path := range []string{"/health/live", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			if status := getJSON(t, client, cfg.SearcherURL+path, nil); status != http.StatusOK {
				t.Errorf("expected 200, got %d", status)
			}
		})
	}
}

func TestQueryValidation(t *testing.T) {
	cfg := loadE2EConfig()
	client := requireService(t, cfg)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"valid boolean", "/api/v1/search/boolean?q=" + url.QueryEscape("retrieval OR model"), http.StatusOK},
		{"missing operator", "/api/v1/search/boolean?q=" + url.QueryEscape("retrieval model"), http.StatusBadRequest},
		{"leading operator", "/api/v1/search/boolean?q=" + url.QueryEscape("NOT model"), http.StatusBadRequest},
		{"valid proximity", "/api/v1/search/proximity?k=2&q=" + url.QueryEscape("data system"), http.StatusOK},
		{"negative k", "/api/v1/search/proximity?k=-1&q=" + url.QueryEscape("data system"), http.StatusBadRequest},
		{"one term", "/api/v1/search/proximity?q=data", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := getJSON(t, client, cfg.SearcherURL+tt.path, nil); status != tt.status {
				t.Errorf("expected %d, got %d", tt.status, status)
			}
		})
	}
}

// TestPublishAndSearch publishes a document with a unique word and polls the
// search API until the consumer has applied it.
func TestPublishAndSearch(t *testing.T) {
	cfg := loadE2EConfig()
	if len(cfg.Brokers) == 0 {
		t.Skip("E2E_KAFKA_BROKERS not set")
	}
	client := requireService(t, cfg)

	unique := fmt.Sprintf("zebra%s", strings.Repeat("q", int(time.Now().UnixNano()%7)+1))
	docID := fmt.Sprintf("e2e-%d.txt", time.Now().UnixNano())

	producer := kafka.NewProducer(config.KafkaConfig{Brokers: cfg.Brokers}, cfg.Topic)
	defer producer.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := producer.Publish(ctx, kafka.Event{
		Key:   docID,
		Value: corpus.DocumentEvent{Op: corpus.OpUpsert, ID: docID, Text: "end to end " + unique + " document"},
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	var found bool
	for attempt := 0; attempt < 30 && !found; attempt++ {
		time.Sleep(time.Second)
		var result struct {
			Documents []string `json:"documents"`
		}
		getJSON(t, client, cfg.SearcherURL+"/api/v1/search/boolean?q="+unique, &result)
		for _, id := range result.Documents {
			if id == docID {
				found = true
				t.Logf("document searchable after %d seconds", attempt+1)
			}
		}
	}
	if !found {
		t.Fatalf("document %s not searchable within 30 seconds", docID)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
